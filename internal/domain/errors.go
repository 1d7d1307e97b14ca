package domain

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrConflict          = errors.New("concurrent modification")
	ErrUnavailable       = errors.New("collaborator unavailable")
)
