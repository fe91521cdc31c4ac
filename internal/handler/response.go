package handler

import (
	"net/http"

	apperrors "github.com/CrashMediaIT/acvideoreview-sync/internal/errors"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeActionError maps protocol errors onto the sync endpoint's wire
// contract. Session lookups and command rejections come back as 200 with
// success:false so a polling client can tell "keep polling" apart from a
// hard transport failure. Storage errors surface as a generic 500.
func writeActionError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	switch appErr.Code {
	case apperrors.ErrCodeSessionNotFound, apperrors.ErrCodeInvalidCommand:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   appErr.Message,
		})

	case apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeInvalidAction:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   appErr.Message,
		})

	case apperrors.ErrCodeUnauthorized:
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   appErr.Message,
		})

	default:
		// Database and internal errors: generic message, no detail leaked.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Database error",
		})
	}
}
