package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/service"
)

// AuthHandler serves the HTML login, logout and registration routes.
type AuthHandler struct {
	sessions            *service.SessionService
	users               *service.UserService
	rd                  *renderer
	registrationEnabled bool
	sessionTTL          time.Duration
	rememberTTL         time.Duration
	logger              zerolog.Logger
}

// AuthHandlerConfig contains the dependencies for an AuthHandler.
type AuthHandlerConfig struct {
	Sessions            *service.SessionService
	Users               *service.UserService
	Renderer            *renderer
	RegistrationEnabled bool
	SessionTTL          time.Duration
	RememberTTL         time.Duration
	Logger              zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		sessions:            cfg.Sessions,
		users:               cfg.Users,
		rd:                  cfg.Renderer,
		registrationEnabled: cfg.RegistrationEnabled,
		sessionTTL:          cfg.SessionTTL,
		rememberTTL:         cfg.RememberTTL,
		logger:              cfg.Logger.With().Str("handler", "auth").Logger(),
	}
}

// loginPageData contains login page data.
type loginPageData struct {
	PageData
	Next                string
	RegistrationEnabled bool
}

// LoginPage renders the login form. Always accessible regardless of the
// require-login setting.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := loginPageData{
		PageData:            PageData{Title: "Sign In - Singboard"},
		Next:                sanitizeNext(r.URL.Query().Get("next")),
		RegistrationEnabled: h.registrationEnabled,
	}
	switch r.URL.Query().Get("flash") {
	case "invalid":
		data.Error = "Invalid username or password."
	case "registered":
		data.Success = "Account created. You can now log in."
	case "logged_out":
		data.Success = "You have been signed out."
	}
	h.rd.render(w, "login.html", data)
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/auth/login?flash=invalid", http.StatusFound)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	remember := r.FormValue("remember_me") != ""
	next := sanitizeNext(r.URL.Query().Get("next"))

	output, err := h.sessions.Login(r.Context(), service.LoginInput{
		Username:  username,
		Password:  password,
		Remember:  remember,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Debug().Err(err).Str("username", username).Msg("login failed")
		// No hint about which field was wrong.
		loginURL := "/auth/login?flash=invalid"
		if next != "" {
			loginURL += "&next=" + url.QueryEscape(next)
		}
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}

	maxAge := h.sessionTTL
	if remember {
		maxAge = h.rememberTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    output.Session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	})

	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout destroys the current session and redirects to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := CurrentSession(r.Context()); session != nil {
		_ = h.sessions.Logout(r.Context(), session.Token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	http.Redirect(w, r, "/auth/login?flash=logged_out", http.StatusFound)
}

// registerPageData contains registration page data.
type registerPageData struct {
	PageData
	Username string
	Email    string
}

// RegisterPage renders the registration form.
// The route is only registered when registration is enabled, so a disabled
// deployment 404s here without any handler-level check.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.rd.render(w, "register.html", registerPageData{
		PageData: PageData{Title: "Register - Singboard"},
	})
}

// Register handles the registration form submission.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegisterError(w, "Invalid form data.", "", "")
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")

	_, err := h.users.Register(r.Context(), service.RegisterInput{
		Username:             username,
		Email:                email,
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password2"),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			h.renderRegisterWarning(w, "Username or email already in use.", username, email)
		case errors.Is(err, domain.ErrPasswordMismatch):
			h.renderRegisterError(w, "Passwords must match.", username, email)
		case errors.Is(err, domain.ErrInvalidPassword),
			errors.Is(err, domain.ErrInvalidUsername),
			errors.Is(err, domain.ErrInvalidEmail):
			h.renderRegisterError(w, err.Error(), username, email)
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			h.renderRegisterError(w, "Registration failed. Please try again.", username, email)
		}
		return
	}

	http.Redirect(w, r, "/auth/login?flash=registered", http.StatusFound)
}

func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, message, username, email string) {
	h.rd.render(w, "register.html", registerPageData{
		PageData: PageData{Title: "Register - Singboard", Error: message},
		Username: username,
		Email:    email,
	})
}

func (h *AuthHandler) renderRegisterWarning(w http.ResponseWriter, message, username, email string) {
	h.rd.render(w, "register.html", registerPageData{
		PageData: PageData{Title: "Register - Singboard", Warning: message},
		Username: username,
		Email:    email,
	})
}

// sanitizeNext keeps redirect targets on this site.
// Only relative paths are accepted; anything else becomes "".
func sanitizeNext(next string) string {
	if next == "" {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}
