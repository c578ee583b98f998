package storage

import "errors"

var (
	// ErrNotFound means the requested trade, curve or series does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means a row with the same key was already written.
	// Trades, snapshots, samples, bars, closes and curve points are append-only.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput means a record or query failed validation before reaching the backend.
	ErrInvalidInput = errors.New("invalid input")
)
