package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/CrashMediaIT/acvideoreview-sync/internal/errors"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/events"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/httputil"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/middleware"
)

// EventsHandler streams pairing-session events over SSE. This is an
// additive push channel: everything it carries is also observable through
// the poll action, and devices fall back to polling when it is absent.
type EventsHandler struct {
	broker *events.Broker
	sync   SyncService
}

func NewEventsHandler(broker *events.Broker, sync SyncService) *EventsHandler {
	return &EventsHandler{
		broker: broker,
		sync:   sync,
	}
}

// GET /api/sync/events?session_id=...
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("session_id"))
		return
	}

	// Poll doubles as the ownership check: it only answers for live
	// sessions belonging to the caller.
	snapshot, err := h.sync.Poll(r.Context(), user.ID, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.broker.Subscribe(sessionID)
	defer h.broker.Unsubscribe(sub)

	log.Info().
		Str("sessionId", sessionID).
		Str("userId", user.ID).
		Msg("event stream established")

	if err := h.sendEvent(w, flusher, events.Event{
		Type: "connected",
		Data: fmt.Appendf(nil, `{"session_id":%q,"status":%q}`, sessionID, snapshot.Status),
	}); err != nil {
		return
	}

	ctx := r.Context()

	heartbeat := time.NewTicker(events.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("sessionId", sessionID).Msg("event stream closed by client")
			return

		case <-sub.Done:
			log.Info().Str("sessionId", sessionID).Msg("event stream closed by broker")
			return

		case event := <-sub.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("sessionId", sessionID).Msg("heartbeat failed, closing stream")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event events.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
