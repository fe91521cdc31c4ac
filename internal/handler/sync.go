package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/CrashMediaIT/acvideoreview-sync/internal/errors"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/middleware"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/service"
)

// SyncService is the slice of the pairing service the sync endpoint needs.
type SyncService interface {
	CreateSession(ctx context.Context, ownerUserID, deviceID string) (*service.CreateSessionResult, error)
	JoinSession(ctx context.Context, ownerUserID, code, deviceID string) (*service.JoinSessionResult, error)
	Poll(ctx context.Context, ownerUserID, sessionID string) (*service.PlaybackSnapshot, error)
	Heartbeat(ctx context.Context, ownerUserID, sessionID string) error
	SendCommand(ctx context.Context, ownerUserID, sessionID string, cmd service.Command) error
}

var _ SyncService = (*service.PairingService)(nil)

// SyncHandler exposes the pairing protocol as a single form-encoded
// action-dispatch endpoint, the shape both device clients speak.
type SyncHandler struct {
	sync SyncService
}

func NewSyncHandler(sync SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

func (h *SyncHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Dispatch)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "Method not allowed",
		})
	})

	return r
}

// POST /api/sync
func (h *SyncHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "Not authenticated",
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeActionError(w, apperrors.InvalidInput("request body", "malformed form data"))
		return
	}

	action := r.PostFormValue("action")
	if action == "" {
		writeActionError(w, apperrors.MissingRequired("action"))
		return
	}

	switch action {
	case "create_session":
		h.createSession(w, r, user)
	case "join_session":
		h.joinSession(w, r, user)
	case "poll":
		h.poll(w, r, user)
	case "heartbeat":
		h.heartbeat(w, r, user)
	case "send_command":
		h.sendCommand(w, r, user)
	default:
		writeActionError(w, apperrors.InvalidAction(action))
	}
}

func (h *SyncHandler) createSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	deviceID := r.PostFormValue("device_id")
	if deviceID == "" {
		writeActionError(w, apperrors.MissingRequired("device_id"))
		return
	}

	result, err := h.sync.CreateSession(r.Context(), user.ID, deviceID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to create pairing session")
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"session_id":   result.SessionID,
		"session_code": result.SessionCode,
		"expires_at":   result.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *SyncHandler) joinSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	code := r.PostFormValue("session_code")
	deviceID := r.PostFormValue("device_id")
	if code == "" {
		writeActionError(w, apperrors.MissingRequired("session_code"))
		return
	}
	if deviceID == "" {
		writeActionError(w, apperrors.MissingRequired("device_id"))
		return
	}

	result, err := h.sync.JoinSession(r.Context(), user.ID, code, deviceID)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": result.SessionID,
		"status":     result.Status,
	})
}

func (h *SyncHandler) poll(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessionID := r.PostFormValue("session_id")
	if sessionID == "" {
		writeActionError(w, apperrors.MissingRequired("session_id"))
		return
	}

	snapshot, err := h.sync.Poll(r.Context(), user.ID, sessionID)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"status":           snapshot.Status,
		"current_video_id": snapshot.CurrentVideoID,
		"current_clip_id":  snapshot.CurrentClipID,
		"playback_time":    snapshot.PlaybackTime,
		"is_playing":       snapshot.IsPlaying,
		"last_command":     snapshot.LastCommand,
	})
}

func (h *SyncHandler) heartbeat(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessionID := r.PostFormValue("session_id")
	if sessionID == "" {
		writeActionError(w, apperrors.MissingRequired("session_id"))
		return
	}

	if err := h.sync.Heartbeat(r.Context(), user.ID, sessionID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("heartbeat failed")
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SyncHandler) sendCommand(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessionID := r.PostFormValue("session_id")
	if sessionID == "" {
		writeActionError(w, apperrors.MissingRequired("session_id"))
		return
	}

	command := model.PlaybackCommand(r.PostFormValue("command"))
	cmd := service.Command{Name: command}

	switch command {
	case model.CommandSeek:
		seconds, err := strconv.ParseFloat(r.PostFormValue("time"), 64)
		if err != nil {
			writeActionError(w, apperrors.InvalidInput("time", "must be a number of seconds"))
			return
		}
		cmd.Seconds = seconds
	case model.CommandLoadVideo:
		videoID, err := strconv.ParseInt(r.PostFormValue("video_id"), 10, 64)
		if err != nil {
			writeActionError(w, apperrors.InvalidInput("video_id", "must be an integer id"))
			return
		}
		cmd.VideoID = videoID
	case model.CommandLoadClip:
		clipID, err := strconv.ParseInt(r.PostFormValue("clip_id"), 10, 64)
		if err != nil {
			writeActionError(w, apperrors.InvalidInput("clip_id", "must be an integer id"))
			return
		}
		cmd.ClipID = clipID
	}

	if err := h.sync.SendCommand(r.Context(), user.ID, sessionID, cmd); err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
