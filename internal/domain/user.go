// Package domain contains the core business entities for Singboard.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the dashboard application.
package domain

import (
	"time"
)

// ReservedAdminUsername is the username of the built-in administrator
// account. This account can never be deleted.
const ReservedAdminUsername = "admin"

// Username length constraints.
const (
	UsernameMinLength = 2
	UsernameMaxLength = 80
)

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user (auto-generated, immutable).
	ID int64 `json:"id"`

	// Username is the unique username for login and display.
	// Constraints: 2-80 characters.
	Username string `json:"username"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Empty means no credential is set and the user cannot log in.
	// This must never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsActive indicates whether the user account is active.
	// Inactive users cannot authenticate and are hidden from the public API listing.
	IsActive bool `json:"is_active"`

	// IsAdmin indicates whether the user has administrative privileges.
	IsAdmin bool `json:"is_admin"`

	// CreatedAt is the timestamp when the user was created. Set once, never updated.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new User with default values.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}
}

// CanAuthenticate returns true if the user is allowed to authenticate.
// A user with no credential set always fails authentication.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && u.PasswordHash != ""
}

// IsReserved returns true if this is the protected built-in admin account.
func (u *User) IsReserved() bool {
	return u.Username == ReservedAdminUsername
}
