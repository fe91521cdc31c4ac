package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/config"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/repository"
)

type contextKey string

const UserContextKey contextKey = "user"

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware resolves the caller from the dashboard session cookie the
// main application issues. Device apps that have no cookie jar may send
// the same token as a bearer header. Resolved tokens are cached briefly
// because paired devices poll every few seconds.
type AuthMiddleware struct {
	sessionRepo repository.DashboardSessionRepository
	cookieName  string
	cache       *ttlcache.Cache[string, *model.User]
}

func NewAuthMiddleware(sessionRepo repository.DashboardSessionRepository, cookieName string) *AuthMiddleware {
	cache := ttlcache.New[string, *model.User](
		ttlcache.WithTTL[string, *model.User](config.AuthCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *model.User](),
	)
	go cache.Start()

	return &AuthMiddleware{
		sessionRepo: sessionRepo,
		cookieName:  cookieName,
		cache:       cache,
	}
}

func (m *AuthMiddleware) Close() {
	m.cache.Stop()
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   "Not authenticated",
			})
			return
		}

		tokenHash := hashToken(token)

		if item := m.cache.Get(tokenHash); item != nil {
			ctx := context.WithValue(r.Context(), UserContextKey, item.Value())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		session, err := m.sessionRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "Authentication failed",
			})
			return
		}

		if session == nil {
			log.Warn().Msg("auth middleware: invalid session token")
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   "Not authenticated",
			})
			return
		}

		user := session.User()
		m.cache.Set(tokenHash, user, ttlcache.DefaultTTL)

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
