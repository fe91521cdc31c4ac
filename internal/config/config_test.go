package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                8080,
		DatabaseURL:         "postgres://localhost/acvr",
		RedisURL:            "redis://localhost:6379",
		SessionCookieName:   "acvr_session",
		SessionTTLHours:     4,
		PairingCodeLength:   6,
		SyncRateLimitPerMin: 120,
		LogLevel:            "info",
	}
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/acvr")
		t.Setenv("REDIS_URL", "redis://localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "acvr_session", cfg.SessionCookieName)
		assert.Equal(t, 4, cfg.SessionTTLHours)
		assert.Equal(t, 6, cfg.PairingCodeLength)
		assert.Equal(t, 120, cfg.SyncRateLimitPerMin)
	})

	t.Run("reads overrides from the environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/acvr")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("PORT", "9090")
		t.Setenv("SESSION_TTL_HOURS", "8")
		t.Setenv("PAIRING_CODE_LENGTH", "8")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 8, cfg.SessionTTLHours)
		assert.Equal(t, 8, cfg.PairingCodeLength)
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts the defaults", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("rejects a non-positive TTL", func(t *testing.T) {
		cfg := validConfig()
		cfg.SessionTTLHours = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects out-of-range code lengths", func(t *testing.T) {
		for _, length := range []int{0, 3, 10} {
			cfg := validConfig()
			cfg.PairingCodeLength = length
			assert.Error(t, cfg.Validate(), "length %d", length)
		}
	})

	t.Run("rejects a non-positive rate limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.SyncRateLimitPerMin = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestSessionTTL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 4*time.Hour, cfg.SessionTTL())
}

func TestAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, ":8080", cfg.Addr())
}
