package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusLive(t *testing.T) {
	assert.True(t, SessionStatusWaiting.Live())
	assert.True(t, SessionStatusPaired.Live())
	assert.True(t, SessionStatusActive.Live())
	assert.False(t, SessionStatusExpired.Live())
	assert.False(t, SessionStatus("disconnected").Live())
}

func TestPlaybackCommandValid(t *testing.T) {
	for _, cmd := range []PlaybackCommand{CommandPlay, CommandPause, CommandSeek, CommandLoadVideo, CommandLoadClip} {
		assert.True(t, cmd.Valid(), string(cmd))
	}
	assert.False(t, PlaybackCommand("eject").Valid())
	assert.False(t, PlaybackCommand("").Valid())
}
