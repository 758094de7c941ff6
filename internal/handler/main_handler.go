package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/repository"
)

// examplePages is the demo page whitelist; anything else under
// /examples/ is a 404.
var examplePages = map[string]string{
	"dashboard": "Dashboard Example",
	"forms":     "Forms Example",
	"tables":    "Tables Example",
	"charts":    "Charts Example",
	"widgets":   "Widgets Example",
}

// MainHandler serves the landing page, example pages and the health check.
type MainHandler struct {
	rd         *renderer
	cache      repository.Cache
	db         repository.DatabaseHealth
	landingTTL time.Duration
	logger     zerolog.Logger
}

// NewMainHandler creates a new MainHandler.
func NewMainHandler(rd *renderer, cache repository.Cache, db repository.DatabaseHealth, landingTTL time.Duration, logger zerolog.Logger) *MainHandler {
	return &MainHandler{
		rd:         rd,
		cache:      cache,
		db:         db,
		landingTTL: landingTTL,
		logger:     logger.With().Str("handler", "main").Logger(),
	}
}

// dashboardPageData contains landing page data.
type dashboardPageData struct {
	PageData
	PageTitle    string
	PageSubtitle string
}

// Landing serves the dashboard landing page. For anonymous visitors the
// rendered page is served read-through from the cache; authenticated
// visitors always get a fresh render because the page shows their name.
func (h *MainHandler) Landing(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user != nil {
		h.rd.render(w, "dashboard.html", h.landingData(user))
		return
	}

	key := repository.CacheKey{}.LandingPage()
	if body, err := h.cache.Get(r.Context(), key); err == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
		return
	}

	body, err := h.rd.renderBytes("dashboard.html", h.landingData(nil))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render landing page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.cache.Set(r.Context(), key, body, h.landingTTL); err != nil {
		// Cache failures degrade to direct rendering.
		h.logger.Warn().Err(err).Msg("failed to cache landing page")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (h *MainHandler) landingData(user *domain.User) dashboardPageData {
	return dashboardPageData{
		PageData: PageData{
			Title: "Singboard",
			User:  user,
		},
		PageTitle:    "Dashboard",
		PageSubtitle: "Welcome to Singboard",
	}
}

// examplePageData contains example page data.
type examplePageData struct {
	PageData
	PageTitle string
}

// Example serves one of the whitelisted demo pages.
func (h *MainHandler) Example(w http.ResponseWriter, r *http.Request) {
	title, ok := examplePages[chi.URLParam(r, "page")]
	if !ok {
		h.rd.renderStatus(w, http.StatusNotFound, "error.html", PageData{
			Title: "Not Found - Singboard",
			Error: "Page not found.",
		})
		return
	}

	h.rd.render(w, "example.html", examplePageData{
		PageData: PageData{
			Title: title + " - Singboard",
			User:  CurrentUser(r.Context()),
		},
		PageTitle: title,
	})
}

// Health reports service liveness including a database ping.
func (h *MainHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
