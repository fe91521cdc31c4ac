package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	SessionCookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"acvr_session"`
	SessionTTLHours     int    `env:"SESSION_TTL_HOURS" envDefault:"4"`
	PairingCodeLength   int    `env:"PAIRING_CODE_LENGTH" envDefault:"6"`
	SyncRateLimitPerMin int    `env:"SYNC_RATE_LIMIT_PER_MIN" envDefault:"120"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", c.SessionTTLHours)
	}
	if c.PairingCodeLength < 4 || c.PairingCodeLength > 9 {
		return fmt.Errorf("PAIRING_CODE_LENGTH must be between 4 and 9, got %d", c.PairingCodeLength)
	}
	if c.SyncRateLimitPerMin <= 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT_PER_MIN must be positive, got %d", c.SyncRateLimitPerMin)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
