package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
)

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.DashboardSession
	calls    int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*model.DashboardSession)}
}

func (r *stubSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.DashboardSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.sessions[tokenHash], nil
}

func (r *stubSessionRepo) add(token string, user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[hashToken(token)] = &model.DashboardSession{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		UserName:  user.Name,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (r *stubSessionRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func echoUser(t *testing.T, captured **model.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	coach := &model.User{ID: "coach-1", Name: "Coach", Role: model.RoleCoach}

	t.Run("rejects requests without a token", func(t *testing.T) {
		m := NewAuthMiddleware(newStubSessionRepo(), "acvr_session")
		defer m.Close()

		rec := httptest.NewRecorder()
		m.Handler(echoUser(t, new(*model.User))).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		m := NewAuthMiddleware(newStubSessionRepo(), "acvr_session")
		defer m.Close()

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(&http.Cookie{Name: "acvr_session", Value: "bogus"})

		rec := httptest.NewRecorder()
		m.Handler(echoUser(t, new(*model.User))).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolves the user from the session cookie", func(t *testing.T) {
		repo := newStubSessionRepo()
		repo.add("token-1", coach)
		m := NewAuthMiddleware(repo, "acvr_session")
		defer m.Close()

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(&http.Cookie{Name: "acvr_session", Value: "token-1"})

		var seen *model.User
		rec := httptest.NewRecorder()
		m.Handler(echoUser(t, &seen)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "coach-1", seen.ID)
		assert.Equal(t, model.RoleCoach, seen.Role)
	})

	t.Run("accepts the token as a bearer header", func(t *testing.T) {
		repo := newStubSessionRepo()
		repo.add("token-1", coach)
		m := NewAuthMiddleware(repo, "acvr_session")
		defer m.Close()

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer token-1")

		var seen *model.User
		rec := httptest.NewRecorder()
		m.Handler(echoUser(t, &seen)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "coach-1", seen.ID)
	})

	t.Run("caches resolved tokens", func(t *testing.T) {
		repo := newStubSessionRepo()
		repo.add("token-1", coach)
		m := NewAuthMiddleware(repo, "acvr_session")
		defer m.Close()

		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", "Bearer token-1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Equal(t, 1, repo.callCount())
	})
}

func TestGetUser(t *testing.T) {
	t.Run("returns nil on an empty context", func(t *testing.T) {
		assert.Nil(t, GetUser(context.Background()))
	})

	t.Run("returns the stored user", func(t *testing.T) {
		user := &model.User{ID: "coach-1"}
		ctx := context.WithValue(context.Background(), UserContextKey, user)
		assert.Equal(t, user, GetUser(ctx))
	})
}
