// Package repository provides the data access layer for Singboard.
// This file contains the aggregate types shared by the database backends.
package repository

import (
	"context"
)

// Repositories holds all repository instances for one database backend.
type Repositories struct {
	User    UserRepository
	Session SessionRepository
}

// DatabaseHealth is an interface for database health checks.
// Both the SQLite and PostgreSQL wrappers satisfy it, so cmd wiring and the
// health endpoint don't care which backend is configured.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
