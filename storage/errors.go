package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when no run is recorded for an equipment ID.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidKey is returned when an equipment ID cannot be used as a KV key.
	ErrInvalidKey = errors.New("invalid run key")
)
