package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	apperrors "github.com/CrashMediaIT/acvideoreview-sync/internal/errors"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/events"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/repository"
)

const (
	defaultSessionTTL      = 4 * time.Hour
	defaultCodeLength      = 6
	codeGenerationAttempts = 10
)

// EventPublisher pushes session events to the optional SSE channel.
// Polling carries the same information; publish failures are non-fatal.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID string, event events.Event) error
}

type CreateSessionResult struct {
	SessionID   string    `json:"session_id"`
	SessionCode string    `json:"session_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type JoinSessionResult struct {
	SessionID string              `json:"session_id"`
	Status    model.SessionStatus `json:"status"`
}

type PlaybackSnapshot struct {
	Status         model.SessionStatus `json:"status"`
	CurrentVideoID *int64              `json:"current_video_id"`
	CurrentClipID  *int64              `json:"current_clip_id"`
	PlaybackTime   float64             `json:"playback_time"`
	IsPlaying      bool                `json:"is_playing"`
	LastCommand    string              `json:"last_command,omitempty"`
}

// Command is a parsed controller command. Only the argument matching the
// command name is meaningful.
type Command struct {
	Name    model.PlaybackCommand
	Seconds float64
	VideoID int64
	ClipID  int64
}

// PairingService owns the pairing-session lifecycle: code issuance,
// controller join, playback command relay, and expiry.
type PairingService struct {
	repo       repository.PairingSessionRepository
	publisher  EventPublisher
	clock      clockwork.Clock
	sessionTTL time.Duration
	codeLength int
}

func NewPairingService(
	repo repository.PairingSessionRepository,
	publisher EventPublisher,
	clock clockwork.Clock,
	sessionTTL time.Duration,
	codeLength int,
) *PairingService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if codeLength <= 0 {
		codeLength = defaultCodeLength
	}
	return &PairingService{
		repo:       repo,
		publisher:  publisher,
		clock:      clock,
		sessionTTL: sessionTTL,
		codeLength: codeLength,
	}
}

// CreateSession starts a new viewer-side session. Any live session the
// owner already has is expired first, so one user never accumulates
// multiple joinable sessions.
func (s *PairingService) CreateSession(ctx context.Context, ownerUserID, deviceID string) (*CreateSessionResult, error) {
	superseded, err := s.repo.ExpireAllForOwner(ctx, ownerUserID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if superseded > 0 {
		log.Info().
			Str("userId", ownerUserID).
			Int64("count", superseded).
			Msg("superseded prior pairing sessions")
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	expiresAt := s.clock.Now().Add(s.sessionTTL)

	session, err := s.repo.Create(ctx, model.CreatePairingSessionParams{
		SessionCode:    code,
		OwnerUserID:    ownerUserID,
		ViewerDeviceID: deviceID,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("sessionCode", code).
		Str("userId", ownerUserID).
		Time("expiresAt", expiresAt).
		Msg("pairing session created")

	return &CreateSessionResult{
		SessionID:   session.ID,
		SessionCode: session.SessionCode,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// JoinSession attaches a controller device to a waiting session by code.
// Only waiting, unexpired sessions of the calling user match; a second
// join against the same code fails because the status is no longer waiting.
func (s *PairingService) JoinSession(ctx context.Context, ownerUserID, code, deviceID string) (*JoinSessionResult, error) {
	normalized := strings.TrimSpace(code)

	session, err := s.repo.FindWaitingByCode(ctx, normalized)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil || session.OwnerUserID != ownerUserID || s.isExpired(session) {
		log.Warn().Str("sessionCode", normalized).Str("userId", ownerUserID).Msg("join failed: no matching session")
		return nil, apperrors.SessionNotFound()
	}

	paired, err := s.repo.MarkPaired(ctx, session.ID, deviceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !paired {
		// Lost a race with another join or with expiry.
		return nil, apperrors.SessionNotFound()
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("controllerDeviceId", deviceID).
		Msg("controller paired")

	s.publish(ctx, session.ID, events.TypePaired, map[string]any{
		"controller_device_id": deviceID,
	})

	return &JoinSessionResult{
		SessionID: session.ID,
		Status:    model.SessionStatusPaired,
	}, nil
}

// Poll returns the last known playback state. It is a pure read: the
// heartbeat timestamp is untouched. Expiry is applied lazily here so a
// session stops answering the instant its deadline passes, without
// waiting for the cleanup sweep.
func (s *PairingService) Poll(ctx context.Context, ownerUserID, sessionID string) (*PlaybackSnapshot, error) {
	session, err := s.repo.FindByID(ctx, sessionID, ownerUserID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil || session.Status == model.SessionStatusExpired {
		return nil, apperrors.SessionNotFound()
	}

	if s.isExpired(session) {
		if err := s.repo.MarkExpired(ctx, session.ID); err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to mark session expired")
		}
		s.publish(ctx, session.ID, events.TypeExpired, map[string]any{"reason": "ttl"})
		return nil, apperrors.SessionNotFound()
	}

	return &PlaybackSnapshot{
		Status:         session.Status,
		CurrentVideoID: session.CurrentVideoID,
		CurrentClipID:  session.CurrentClipID,
		PlaybackTime:   session.PlaybackTime,
		IsPlaying:      session.IsPlaying,
		LastCommand:    session.LastCommand,
	}, nil
}

// Heartbeat refreshes device liveness. A mismatched or expired session is
// a silent no-op so polling loops stay simple.
func (s *PairingService) Heartbeat(ctx context.Context, ownerUserID, sessionID string) error {
	if err := s.repo.TouchHeartbeat(ctx, sessionID, ownerUserID); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// SendCommand applies a controller command to the session row. The first
// applied command promotes a paired session to active. Video and clip ids
// are relayed as-is; the manager does not validate they exist.
func (s *PairingService) SendCommand(ctx context.Context, ownerUserID, sessionID string, cmd Command) error {
	if !cmd.Name.Valid() {
		return apperrors.InvalidCommand(string(cmd.Name))
	}

	var (
		applied bool
		err     error
	)

	switch cmd.Name {
	case model.CommandPlay:
		applied, err = s.repo.SetPlaying(ctx, sessionID, ownerUserID, true)
	case model.CommandPause:
		applied, err = s.repo.SetPlaying(ctx, sessionID, ownerUserID, false)
	case model.CommandSeek:
		applied, err = s.repo.SeekTo(ctx, sessionID, ownerUserID, cmd.Seconds)
	case model.CommandLoadVideo:
		applied, err = s.repo.LoadVideo(ctx, sessionID, ownerUserID, cmd.VideoID)
	case model.CommandLoadClip:
		applied, err = s.repo.LoadClip(ctx, sessionID, ownerUserID, cmd.ClipID)
	}

	if err != nil {
		return apperrors.Database(err)
	}
	if !applied {
		return apperrors.SessionNotFound()
	}

	log.Debug().
		Str("sessionId", sessionID).
		Str("command", string(cmd.Name)).
		Msg("command applied")

	s.publish(ctx, sessionID, events.TypeCommand, map[string]any{
		"command": string(cmd.Name),
	})

	return nil
}

func (s *PairingService) isExpired(session *model.PairingSession) bool {
	return !s.clock.Now().Before(session.ExpiresAt)
}

func (s *PairingService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code := s.generateCode()
		inUse, err := s.repo.CodeInUse(ctx, code)
		if err != nil {
			return "", apperrors.Database(err)
		}
		if !inUse {
			return code, nil
		}
		log.Warn().Str("sessionCode", code).Msg("session code collision, regenerating")
	}
	return "", apperrors.CodeExhausted()
}

// generateCode returns a zero-padded random numeric code.
func (s *PairingService) generateCode() string {
	upper := big.NewInt(1)
	for i := 0; i < s.codeLength; i++ {
		upper.Mul(upper, big.NewInt(10))
	}
	n, _ := rand.Int(rand.Reader, upper)
	return fmt.Sprintf("%0*d", s.codeLength, n)
}

func (s *PairingService) publish(ctx context.Context, sessionID, eventType string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, sessionID, events.Event{Type: eventType, Data: payload}); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Str("event", eventType).Msg("failed to publish session event")
	}
}
