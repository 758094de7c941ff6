// Package domain contains the core business entities for Singboard.
package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username/email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrReservedUser indicates the operation targets the protected admin account.
	ErrReservedUser = errors.New("built-in admin account cannot be deleted")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrSessionNotFound indicates the session token is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session is past its expiration time.
	ErrSessionExpired = errors.New("session has expired")

	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrInvalidUsername indicates the username length is invalid (2-80 chars).
	ErrInvalidUsername = errors.New("username must be between 2 and 80 characters")

	// ErrInvalidEmail indicates the email address format is invalid.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPassword indicates the password does not meet requirements.
	ErrInvalidPassword = errors.New("password must be at least 8 characters")

	// ErrPasswordMismatch indicates the password confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)
