package storage

import "github.com/camuig/paper-desk/internal/domain"

// Storage errors. They alias the domain sentinels so callers can match either.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = domain.ErrNotFound

	// ErrConflict is returned when an update or delete carries a stale version.
	ErrConflict = domain.ErrConflict

	// ErrInvalidInput is returned when a record fails basic shape checks.
	ErrInvalidInput = domain.ErrInvalidInput
)
