// Package errors holds the sentinels services wrap so the HTTP layer can map
// failures to status codes without knowing their origin.
package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a write that lost to a concurrent or duplicate row.
	ErrConflict = errors.New("conflict")
)
