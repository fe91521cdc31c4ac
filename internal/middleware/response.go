package middleware

import (
	"net/http"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
