package model

import "time"

type SessionStatus string

const (
	SessionStatusWaiting SessionStatus = "waiting"
	SessionStatusPaired  SessionStatus = "paired"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusExpired SessionStatus = "expired"
)

// Live reports whether a session can still accept polls and commands.
func (s SessionStatus) Live() bool {
	return s == SessionStatusWaiting || s == SessionStatusPaired || s == SessionStatusActive
}

type PlaybackCommand string

const (
	CommandPlay      PlaybackCommand = "play"
	CommandPause     PlaybackCommand = "pause"
	CommandSeek      PlaybackCommand = "seek"
	CommandLoadVideo PlaybackCommand = "load_video"
	CommandLoadClip  PlaybackCommand = "load_clip"
)

func (c PlaybackCommand) Valid() bool {
	switch c {
	case CommandPlay, CommandPause, CommandSeek, CommandLoadVideo, CommandLoadClip:
		return true
	}
	return false
}

type PairingSession struct {
	ID                 string        `db:"id" json:"id"`
	SessionCode        string        `db:"session_code" json:"sessionCode"`
	OwnerUserID        string        `db:"owner_user_id" json:"-"`
	ViewerDeviceID     string        `db:"viewer_device_id" json:"viewerDeviceId"`
	ControllerDeviceID string        `db:"controller_device_id" json:"controllerDeviceId,omitempty"`
	Status             SessionStatus `db:"status" json:"status"`
	CurrentVideoID     *int64        `db:"current_video_id" json:"currentVideoId,omitempty"`
	CurrentClipID      *int64        `db:"current_clip_id" json:"currentClipId,omitempty"`
	PlaybackTime       float64       `db:"playback_time" json:"playbackTime"`
	IsPlaying          bool          `db:"is_playing" json:"isPlaying"`
	LastCommand        string        `db:"last_command" json:"lastCommand,omitempty"`
	ExpiresAt          time.Time     `db:"expires_at" json:"expiresAt"`
	LastHeartbeat      time.Time     `db:"last_heartbeat" json:"lastHeartbeat"`
	PairedAt           *time.Time    `db:"paired_at" json:"pairedAt,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreatePairingSessionParams struct {
	SessionCode    string
	OwnerUserID    string
	ViewerDeviceID string
	ExpiresAt      time.Time
}
