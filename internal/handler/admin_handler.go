package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/service"
)

// AdminHandler serves the HTML user management pages.
type AdminHandler struct {
	users  *service.UserService
	rd     *renderer
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users *service.UserService, rd *renderer, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		users:  users,
		rd:     rd,
		logger: logger.With().Str("handler", "admin").Logger(),
	}
}

// usersListPageData contains user list page data.
type usersListPageData struct {
	PageData
	Users []*domain.User
}

// ListUsers renders the full user table ordered by id.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		h.rd.renderStatus(w, http.StatusInternalServerError, "error.html", PageData{
			Title: "Error - Singboard",
			Error: "Failed to load users.",
		})
		return
	}

	data := usersListPageData{
		PageData: PageData{
			Title: "Users - Singboard",
			User:  CurrentUser(r.Context()),
		},
		Users: users,
	}
	switch r.URL.Query().Get("flash") {
	case "created":
		data.Success = "User created."
	case "updated":
		data.Success = "User updated."
	case "deleted":
		data.Success = "User deleted."
	case "reserved":
		data.Warning = "The admin user cannot be deleted."
	case "not_found":
		data.Warning = "User not found."
	}
	h.rd.render(w, "users_list.html", data)
}

// userFormPageData contains user form page data, shared by the create
// and edit pages.
type userFormPageData struct {
	PageData
	Action     string
	FormAction string
	Username   string
	Email      string
	IsAdmin    bool
	IsActive   bool
}

// NewUserPage renders the create-user form.
func (h *AdminHandler) NewUserPage(w http.ResponseWriter, r *http.Request) {
	h.rd.render(w, "user_form.html", userFormPageData{
		PageData: PageData{
			Title: "New User - Singboard",
			User:  CurrentUser(r.Context()),
		},
		Action:     "Create",
		FormAction: "/admin/users/new",
		IsActive:   true,
	})
}

// CreateUser handles the create-user form submission. A blank password is
// allowed: the account exists but cannot log in until a password is set.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/users/new", http.StatusFound)
		return
	}

	input := service.CreateUserInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		IsAdmin:  r.FormValue("is_admin") != "",
		IsActive: r.FormValue("is_active") != "",
	}

	if _, err := h.users.Create(r.Context(), input); err != nil {
		h.renderUserFormError(w, r, userFormPageData{
			PageData: PageData{
				Title: "New User - Singboard",
				User:  CurrentUser(r.Context()),
			},
			Action:     "Create",
			FormAction: "/admin/users/new",
			Username:   input.Username,
			Email:      input.Email,
			IsAdmin:    input.IsAdmin,
			IsActive:   input.IsActive,
		}, err)
		return
	}

	http.Redirect(w, r, "/admin/users?flash=created", http.StatusFound)
}

// EditUserPage renders the edit form prefilled with the user's current
// values. The password field starts blank; leaving it blank keeps the
// existing credential.
func (h *AdminHandler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	h.rd.render(w, "user_form.html", userFormPageData{
		PageData: PageData{
			Title: "Edit User - Singboard",
			User:  CurrentUser(r.Context()),
		},
		Action:     "Update",
		FormAction: fmt.Sprintf("/admin/users/%d/edit", user.ID),
		Username:   user.Username,
		Email:      user.Email,
		IsAdmin:    user.IsAdmin,
		IsActive:   user.IsActive,
	})
}

// UpdateUser handles the edit form submission.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookupUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, fmt.Sprintf("/admin/users/%d/edit", user.ID), http.StatusFound)
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	isAdmin := r.FormValue("is_admin") != ""
	isActive := r.FormValue("is_active") != ""

	input := service.UpdateUserInput{
		Username: &username,
		Email:    &email,
		IsAdmin:  &isAdmin,
		IsActive: &isActive,
	}
	// Empty means "keep the current password".
	if password := r.FormValue("password"); password != "" {
		input.Password = &password
	}

	if _, err := h.users.Update(r.Context(), user.ID, input); err != nil {
		h.renderUserFormError(w, r, userFormPageData{
			PageData: PageData{
				Title: "Edit User - Singboard",
				User:  CurrentUser(r.Context()),
			},
			Action:     "Update",
			FormAction: fmt.Sprintf("/admin/users/%d/edit", user.ID),
			Username:   username,
			Email:      email,
			IsAdmin:    isAdmin,
			IsActive:   isActive,
		}, err)
		return
	}

	http.Redirect(w, r, "/admin/users?flash=updated", http.StatusFound)
}

// DeleteUser removes a user. Deleting the reserved admin account is a
// no-op that reports a warning instead of an error.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/admin/users?flash=not_found", http.StatusFound)
		return
	}

	switch err := h.users.Delete(r.Context(), id); {
	case err == nil:
		http.Redirect(w, r, "/admin/users?flash=deleted", http.StatusFound)
	case errors.Is(err, domain.ErrReservedUser):
		http.Redirect(w, r, "/admin/users?flash=reserved", http.StatusFound)
	case errors.Is(err, domain.ErrUserNotFound):
		http.Redirect(w, r, "/admin/users?flash=not_found", http.StatusFound)
	default:
		h.logger.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		http.Redirect(w, r, "/admin/users", http.StatusFound)
	}
}

func (h *AdminHandler) lookupUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/admin/users?flash=not_found", http.StatusFound)
		return nil, false
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Redirect(w, r, "/admin/users?flash=not_found", http.StatusFound)
		} else {
			h.logger.Error().Err(err).Int64("user_id", id).Msg("failed to load user")
			h.rd.renderStatus(w, http.StatusInternalServerError, "error.html", PageData{
				Title: "Error - Singboard",
				Error: "Failed to load user.",
			})
		}
		return nil, false
	}
	return user, true
}

func (h *AdminHandler) renderUserFormError(w http.ResponseWriter, r *http.Request, data userFormPageData, err error) {
	switch {
	case errors.Is(err, domain.ErrUserAlreadyExists):
		data.Warning = "Username or email already in use."
	case errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword):
		data.Error = err.Error()
	default:
		h.logger.Error().Err(err).Msg("user form submission failed")
		data.Error = "Something went wrong. Please try again."
	}
	h.rd.render(w, "user_form.html", data)
}
