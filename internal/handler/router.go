package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/config"
	"github.com/singboard/singboard/internal/metrics"
	"github.com/singboard/singboard/internal/repository"
	"github.com/singboard/singboard/internal/service"
)

// route is one entry in the static route table. The table is filtered
// once at startup: disabled routes are never mounted, so a disabled
// feature 404s with no handler-level checks.
type route struct {
	method  string
	pattern string
	cap     Capability
	json    bool
	enabled bool
	handler http.HandlerFunc
}

// RouterConfig contains everything the router needs.
type RouterConfig struct {
	Config   *config.Config
	Users    *service.UserService
	Sessions *service.SessionService
	Cache    repository.Cache
	DB       repository.DatabaseHealth
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewRouter builds the chi router with all middleware and routes.
func NewRouter(cfg RouterConfig) (chi.Router, error) {
	rd, err := newRenderer(cfg.Logger)
	if err != nil {
		return nil, err
	}

	authHandler := NewAuthHandler(AuthHandlerConfig{
		Sessions:            cfg.Sessions,
		Users:               cfg.Users,
		Renderer:            rd,
		RegistrationEnabled: cfg.Config.Auth.EnableRegistration,
		SessionTTL:          cfg.Config.Sessions.TTL,
		RememberTTL:         cfg.Config.Sessions.RememberTTL,
		Logger:              cfg.Logger,
	})
	adminHandler := NewAdminHandler(cfg.Users, rd, cfg.Logger)
	apiHandler := NewAPIHandler(cfg.Users, cfg.Logger)
	mainHandler := NewMainHandler(rd, cfg.Cache, cfg.DB, cfg.Config.Cache.LandingTTL, cfg.Logger)

	auth := NewAuthMiddleware(cfg.Sessions, cfg.Config.Auth.RequireLogin, cfg.Logger)

	// API writes are open unless the deployment opts in to production
	// hardening.
	apiWriteCap := CapabilityNone
	if cfg.Config.Auth.SecurityLevel == config.SecurityLevelProduction {
		apiWriteCap = CapabilityAuthenticated
	}

	registration := cfg.Config.Auth.EnableRegistration
	examples := cfg.Config.Auth.EnableExamples

	routes := []route{
		// Pages
		{method: http.MethodGet, pattern: "/", cap: CapabilityAuthenticated, enabled: true, handler: mainHandler.Landing},
		{method: http.MethodGet, pattern: "/examples/{page}", cap: CapabilityAuthenticated, enabled: examples, handler: mainHandler.Example},
		{method: http.MethodGet, pattern: "/health", cap: CapabilityNone, json: true, enabled: true, handler: mainHandler.Health},

		// Auth
		{method: http.MethodGet, pattern: "/auth/login", cap: CapabilityNone, enabled: true, handler: authHandler.LoginPage},
		{method: http.MethodPost, pattern: "/auth/login", cap: CapabilityNone, enabled: true, handler: authHandler.Login},
		{method: http.MethodGet, pattern: "/auth/logout", cap: CapabilityAuthenticated, enabled: true, handler: authHandler.Logout},
		{method: http.MethodGet, pattern: "/auth/register", cap: CapabilityNone, enabled: registration, handler: authHandler.RegisterPage},
		{method: http.MethodPost, pattern: "/auth/register", cap: CapabilityNone, enabled: registration, handler: authHandler.Register},

		// Admin
		{method: http.MethodGet, pattern: "/admin/users", cap: CapabilityAdmin, enabled: true, handler: adminHandler.ListUsers},
		{method: http.MethodGet, pattern: "/admin/users/new", cap: CapabilityAdmin, enabled: true, handler: adminHandler.NewUserPage},
		{method: http.MethodPost, pattern: "/admin/users/new", cap: CapabilityAdmin, enabled: true, handler: adminHandler.CreateUser},
		{method: http.MethodGet, pattern: "/admin/users/{id}/edit", cap: CapabilityAdmin, enabled: true, handler: adminHandler.EditUserPage},
		{method: http.MethodPost, pattern: "/admin/users/{id}/edit", cap: CapabilityAdmin, enabled: true, handler: adminHandler.UpdateUser},
		{method: http.MethodPost, pattern: "/admin/users/{id}/delete", cap: CapabilityAdmin, enabled: true, handler: adminHandler.DeleteUser},

		// User API
		{method: http.MethodGet, pattern: "/api/users", cap: CapabilityNone, json: true, enabled: true, handler: apiHandler.ListUsers},
		{method: http.MethodPost, pattern: "/api/users", cap: apiWriteCap, json: true, enabled: true, handler: apiHandler.CreateUser},
		{method: http.MethodGet, pattern: "/api/users/{id}", cap: CapabilityNone, json: true, enabled: true, handler: apiHandler.GetUser},
		{method: http.MethodPut, pattern: "/api/users/{id}", cap: apiWriteCap, json: true, enabled: true, handler: apiHandler.UpdateUser},
		{method: http.MethodPatch, pattern: "/api/users/{id}", cap: apiWriteCap, json: true, enabled: true, handler: apiHandler.UpdateUser},
		{method: http.MethodDelete, pattern: "/api/users/{id}", cap: apiWriteCap, json: true, enabled: true, handler: apiHandler.DeleteUser},

		// Demo data API
		{method: http.MethodGet, pattern: "/api/settings", cap: CapabilityNone, json: true, enabled: true, handler: apiHandler.GetSettings},
		{method: http.MethodGet, pattern: "/api/notifications", cap: CapabilityNone, json: true, enabled: true, handler: apiHandler.GetNotifications},
		{method: http.MethodGet, pattern: "/api/messages", cap: CapabilityNone, json: true, enabled: true, handler: apiHandler.GetMessages},
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(auth.LoadSession)

	for _, rt := range routes {
		if !rt.enabled {
			continue
		}
		handler := http.Handler(rt.handler)
		if rt.json {
			handler = auth.RequireAPI(rt.cap)(handler)
		} else {
			handler = auth.Require(rt.cap)(handler)
		}
		r.Method(rt.method, rt.pattern, handler)
	}

	return r, nil
}
