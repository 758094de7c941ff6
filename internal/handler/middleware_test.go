package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/singboard/singboard/internal/config"
)

func TestAdminGateEnforced(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "admin", "admin@example.com", "longenough1", true)
	env.addUser(t, "carol", "carol@example.com", "longenough1", false)

	t.Run("anonymous redirected to login", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "/auth/login?next=")
		require.Contains(t, rec.Header().Get("Location"), "%2Fadmin%2Fusers")
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(env.login(t, "carol", "longenough1"))
		rec := env.do(req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(env.login(t, "admin", "longenough1"))
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "carol")
	})
}

func TestDemoModeOpensGates(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Auth.RequireLogin = false
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidSessionCookieIgnored(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	rec := env.do(req)

	// Treated as anonymous, not as an error.
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/auth/login")
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "alice", "alice@example.com", "longenough1", false)
	cookie := env.login(t, "alice", "longenough1")

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := env.do(req)
	require.Equal(t, http.StatusFound, rec.Code)

	// The session no longer authenticates.
	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/auth/login")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSanitizeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/admin/users", "/admin/users"},
		{"/", "/"},
		{"https://evil.example.com", ""},
		{"//evil.example.com", ""},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, sanitizeNext(tt.in), "input %q", tt.in)
	}
}
