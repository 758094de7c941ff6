package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/service"
)

// APIHandler serves the JSON user API and the demo data endpoints.
type APIHandler struct {
	users  *service.UserService
	logger zerolog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(users *service.UserService, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		users:  users,
		logger: logger.With().Str("handler", "api").Logger(),
	}
}

// userPageResponse is the paginated user listing body.
type userPageResponse struct {
	Users   []*domain.User `json:"users"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Pages   int            `json:"pages"`
	PerPage int            `json:"per_page"`
}

// ListUsers returns a page of active users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	output, err := h.users.ListActivePage(r.Context(), service.ListActivePageInput{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, userPageResponse{
		Users:   output.Users,
		Total:   output.Total,
		Page:    output.Page,
		Pages:   output.Pages,
		PerPage: output.PerPage,
	})
}

// createUserRequest is the POST /api/users body. Privilege fields are
// not accepted here: the endpoint can be open to anonymous callers, so
// admin accounts are only minted through the gated admin form or the CLI.
type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser creates an active, non-admin user from a JSON body. Unlike
// the admin form, the API requires a password.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.users.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  false,
		IsActive: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			writeJSONError(w, http.StatusConflict, "username or email already in use")
		case errors.Is(err, domain.ErrInvalidUsername),
			errors.Is(err, domain.ErrInvalidEmail),
			errors.Is(err, domain.ErrInvalidPassword):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to create user")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser returns a single user by id.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.writeUserError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateUserRequest is the PUT/PATCH /api/users/{id} body. Username and
// admin status are immutable through the API.
type updateUserRequest struct {
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// UpdateUser applies a partial update. An empty-string password keeps the
// current credential.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	input := service.UpdateUserInput{
		Email:    req.Email,
		IsActive: req.IsActive,
	}
	if req.Password != nil && *req.Password != "" {
		input.Password = req.Password
	}

	user, err := h.users.Update(r.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeJSONError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, domain.ErrUserAlreadyExists):
			writeJSONError(w, http.StatusConflict, "email already in use")
		case errors.Is(err, domain.ErrInvalidEmail),
			errors.Is(err, domain.ErrInvalidPassword):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Int64("user_id", id).Msg("failed to update user")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user by id.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeJSONError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, domain.ErrReservedUser):
			writeJSONError(w, http.StatusForbidden, "the admin user cannot be deleted")
		default:
			h.logger.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the dashboard UI settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"theme":         "light",
		"sidebar":       "static",
		"notifications": 13,
	})
}

// GetNotifications returns the demo notification feed.
func (h *APIHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{
			"type":   "user",
			"avatar": "/static/demo/img/people/a3.jpg",
			"text":   "1 new user just signed up!",
			"time":   "2 mins ago",
		},
		{
			"type": "system",
			"icon": "fa-solid fa-upload",
			"text": "2.1.0-pre-alpha just released.",
			"time": "5h ago",
		},
		{
			"type": "system",
			"icon": "fa-bolt",
			"text": "Server load limited.",
			"time": "7h ago",
		},
	})
}

// GetMessages returns the demo message feed.
func (h *APIHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{
			"from":   "Philip Smith",
			"avatar": "/static/demo/img/people/a5.jpg",
			"text":   "Hey, are you there?",
			"time":   "12:18 AM",
		},
	})
}

func (h *APIHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "user not found")
		return 0, false
	}
	return id, true
}

func (h *APIHandler) writeUserError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		writeJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error().Err(err).Int64("user_id", id).Msg("failed to load user")
	writeJSONError(w, http.StatusInternalServerError, "internal server error")
}
