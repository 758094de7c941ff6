// Package service provides business logic services for Singboard.
package service

import "errors"

// Common service errors. Business rule violations are reported with the
// sentinel errors in the domain package; these cover everything else.
var (
	// ErrInternalError wraps unexpected infrastructure failures.
	ErrInternalError = errors.New("internal server error")
)
