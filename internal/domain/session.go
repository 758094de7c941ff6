// Package domain contains the core business entities for Singboard.
package domain

import (
	"time"
)

// Session represents a server-side login session bound to a user.
// Sessions are referenced by an opaque random token stored in a cookie.
type Session struct {
	// Token is the opaque session identifier (primary key).
	Token string

	// UserID is the ID of the user this session belongs to.
	UserID int64

	// Remember indicates a long-lived "remember me" session.
	Remember bool

	// IPAddress is the remote address recorded at login.
	IPAddress string

	// UserAgent is the client user agent recorded at login.
	UserAgent string

	// CreatedAt is when the session was established.
	CreatedAt time.Time

	// ExpiresAt is when the session stops being valid.
	ExpiresAt time.Time
}

// IsExpired returns true if the session is past its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
