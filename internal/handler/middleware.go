// Package handler provides HTTP handlers for Singboard.
package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/service"
)

// Capability is the access level a route demands.
type Capability int

const (
	// CapabilityNone allows anonymous access.
	CapabilityNone Capability = iota

	// CapabilityAuthenticated requires a logged-in user when login is enforced.
	CapabilityAuthenticated

	// CapabilityAdmin requires a logged-in admin when login is enforced.
	CapabilityAdmin
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "session"

type contextKey int

const (
	userContextKey contextKey = iota
	sessionContextKey
	requestIDContextKey
)

// CurrentUser returns the authenticated user from the request context,
// or nil for anonymous requests.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// CurrentSession returns the session from the request context, or nil.
func CurrentSession(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(sessionContextKey).(*domain.Session)
	return session
}

// RequestID returns the request ID from the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// AuthMiddleware resolves sessions and gates routes by capability.
type AuthMiddleware struct {
	sessions     *service.SessionService
	requireLogin bool
	logger       zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
// With requireLogin false (demo mode) the authenticated and admin
// capabilities pass for anonymous requests. This is a deliberate policy
// for frictionless evaluation, not a bug.
func NewAuthMiddleware(sessions *service.SessionService, requireLogin bool, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:     sessions,
		requireLogin: requireLogin,
		logger:       logger.With().Str("component", "auth_middleware").Logger(),
	}
}

// LoadSession resolves the session cookie into the request context.
// Anonymous and invalid-session requests continue without a user.
func (m *AuthMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		session, user, err := m.sessions.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			m.logger.Debug().Err(err).Msg("session validation failed")
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require gates an HTML route on the given capability.
// Unauthenticated requests are redirected to the login page with the
// original URL preserved in ?next=. Authenticated non-admins get a 403.
func (m *AuthMiddleware) Require(cap Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.allowed(r, cap) {
				next.ServeHTTP(w, r)
				return
			}

			if CurrentUser(r.Context()) == nil {
				loginURL := "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, loginURL, http.StatusFound)
				return
			}

			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// RequireAPI gates a JSON route on the given capability.
// Unauthenticated requests get 401, authenticated non-admins get 403.
func (m *AuthMiddleware) RequireAPI(cap Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.allowed(r, cap) {
				next.ServeHTTP(w, r)
				return
			}

			if CurrentUser(r.Context()) == nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			writeJSONError(w, http.StatusForbidden, "admin privileges required")
		})
	}
}

// allowed reports whether the request satisfies the capability.
func (m *AuthMiddleware) allowed(r *http.Request, cap Capability) bool {
	if cap == CapabilityNone {
		return true
	}
	if !m.requireLogin {
		// Demo mode: every gate is open.
		return true
	}

	user := CurrentUser(r.Context())
	if user == nil {
		return false
	}
	if cap == CapabilityAdmin && !user.IsAdmin {
		return false
	}
	return true
}

// RequestIDMiddleware attaches a unique ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with zerolog.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", RequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}
