package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an upsert carries a stale version: a
	// concurrent writer won the race and the caller must retry with fresh
	// input rather than overwrite blindly.
	ErrConflict = errors.New("version conflict: record was modified concurrently")

	// ErrDuplicateKey is returned when appending a history entry whose
	// (netuid, recorded_at) key already exists. History is append-only and
	// never updates in place.
	ErrDuplicateKey = errors.New("duplicate key: history store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
