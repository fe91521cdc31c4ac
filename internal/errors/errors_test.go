package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := New(ErrCodeSessionNotFound, "Session not found or expired")
		assert.Equal(t, "SESSION_NOT_FOUND: Session not found or expired", err.Error())
	})

	t.Run("includes the cause when present", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Database(cause)
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, err, cause)
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("unwraps through fmt wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", SessionNotFound())

		appErr, ok := AsAppError(wrapped)
		require.True(t, ok)
		assert.Equal(t, ErrCodeSessionNotFound, appErr.Code)
	})

	t.Run("rejects plain errors", func(t *testing.T) {
		_, ok := AsAppError(errors.New("plain"))
		assert.False(t, ok)
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidCommand, GetCode(InvalidCommand("eject")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeSessionNotFound, SessionNotFound().Code)
	assert.Equal(t, ErrCodeCodeExhausted, CodeExhausted().Code)
	assert.Contains(t, InvalidCommand("eject").Message, "eject")
	assert.Contains(t, InvalidAction("teleport").Message, "teleport")
	assert.Contains(t, MissingRequired("device_id").Message, "device_id")
	assert.Equal(t, "Database error", Database(errors.New("boom")).Message)
}
