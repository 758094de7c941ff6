package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// parseTemplates parses the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// PageData contains common page data.
type PageData struct {
	Title   string
	User    *domain.User
	Error   string
	Warning string
	Success string
}

// renderer renders embedded templates and reports failures.
type renderer struct {
	templates *template.Template
	logger    zerolog.Logger
}

func newRenderer(logger zerolog.Logger) (*renderer, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &renderer{templates: tmpl, logger: logger}, nil
}

func (rd *renderer) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rd.templates.ExecuteTemplate(w, name, data); err != nil {
		rd.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// renderBytes renders a template into a buffer so the result can be cached.
func (rd *renderer) renderBytes(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderStatus renders a template with an explicit HTTP status code.
func (rd *renderer) renderStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rd.templates.ExecuteTemplate(w, name, data); err != nil {
		rd.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}
