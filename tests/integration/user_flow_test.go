// Package integration provides end-to-end tests for the Singboard HTTP surface
// against a real SQLite database.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/singboard/singboard/internal/cache/memory"
	"github.com/singboard/singboard/internal/config"
	"github.com/singboard/singboard/internal/handler"
	"github.com/singboard/singboard/internal/repository/sqlite"
	"github.com/singboard/singboard/internal/service"
)

// newTestServer boots the full stack on an in-memory SQLite database.
// The user service is returned alongside the server so tests can set up
// accounts (notably admins) without going through the HTTP surface.
func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *service.UserService) {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			RequireLogin:       true,
			EnableRegistration: true,
			EnableExamples:     true,
			SecurityLevel:      config.SecurityLevelBasic,
		},
		Sessions: config.SessionConfig{
			TTL:         24 * time.Hour,
			RememberTTL: 30 * 24 * time.Hour,
		},
		Cache: config.CacheConfig{LandingTTL: 5 * time.Minute},
	}
	if mutate != nil {
		mutate(cfg)
	}

	users := service.NewUserService(sqlite.NewUserRepository(db), logger)
	sessions := service.NewSessionService(service.SessionServiceConfig{
		SessionRepo: sqlite.NewSessionRepository(db),
		Users:       users,
		TTL:         cfg.Sessions.TTL,
		RememberTTL: cfg.Sessions.RememberTTL,
		Logger:      logger,
	})

	cache := memory.NewCache()
	t.Cleanup(cache.Stop)

	router, err := handler.NewRouter(handler.RouterConfig{
		Config:   cfg,
		Users:    users,
		Sessions: sessions,
		Cache:    cache,
		DB:       db,
		Logger:   logger,
	})
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, users
}

// newClient returns an HTTP client with a cookie jar that does not follow
// redirects, so tests can assert on Location headers.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, client *http.Client, target string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterLoginAdminFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	server, users := newTestServer(t, nil)
	client := newClient(t)

	// Bootstrap an admin account; the JSON API never grants privileges.
	_, err := users.Create(context.Background(), service.CreateUserInput{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "adminpass123",
		IsAdmin:  true,
		IsActive: true,
	})
	require.NoError(t, err)

	t.Run("Register", func(t *testing.T) {
		resp := postForm(t, client, server.URL+"/auth/register", url.Values{
			"username":  {"bob"},
			"email":     {"bob@x.com"},
			"password":  {"longenough1"},
			"password2": {"longenough1"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Location"), "/auth/login")
	})

	t.Run("LoginWrongPassword", func(t *testing.T) {
		resp := postForm(t, client, server.URL+"/auth/login", url.Values{
			"username": {"bob"},
			"password": {"wrongwrong1"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Location"), "/auth/login")
	})

	t.Run("Login", func(t *testing.T) {
		resp := postForm(t, client, server.URL+"/auth/login", url.Values{
			"username": {"bob"},
			"password": {"longenough1"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("LandingAsBob", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("AdminPagesForbiddenForBob", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/admin/users")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Logout", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/auth/logout")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("AdminLoginAndManage", func(t *testing.T) {
		admin := newClient(t)
		resp := postForm(t, admin, server.URL+"/auth/login", url.Values{
			"username": {"admin"},
			"password": {"adminpass123"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)

		listResp, err := admin.Get(server.URL + "/admin/users")
		require.NoError(t, err)
		defer listResp.Body.Close()
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		createResp := postForm(t, admin, server.URL+"/admin/users/new", url.Values{
			"username":  {"carol"},
			"email":     {"carol@example.com"},
			"password":  {"longenough1"},
			"is_active": {"on"},
		})
		require.Equal(t, http.StatusFound, createResp.StatusCode)
		require.Contains(t, createResp.Header.Get("Location"), "flash=created")
	})
}

func TestUserAPIAgainstDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	server, _ := newTestServer(t, nil)
	client := newClient(t)

	var created struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	t.Run("Create", func(t *testing.T) {
		resp := postJSON(t, client, server.URL+"/api/users", map[string]any{
			"username": "dave",
			"email":    "dave@example.com",
			"password": "longenough1",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		require.Equal(t, "dave", created.Username)
	})

	t.Run("DuplicateConflict", func(t *testing.T) {
		resp := postJSON(t, client, server.URL+"/api/users", map[string]any{
			"username": "dave",
			"email":    "other@example.com",
			"password": "longenough1",
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Get", func(t *testing.T) {
		resp, err := client.Get(fmt.Sprintf("%s/api/users/%d", server.URL, created.ID))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("PatchEmail", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{
			"email": "dave2@example.com",
		}))
		req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/users/%d", server.URL, created.ID), &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var user struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
		require.Equal(t, "dave2@example.com", user.Email)
	})

	t.Run("Delete", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/users/%d", server.URL, created.ID), nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		getResp, err := client.Get(fmt.Sprintf("%s/api/users/%d", server.URL, created.ID))
		require.NoError(t, err)
		defer getResp.Body.Close()
		require.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}
