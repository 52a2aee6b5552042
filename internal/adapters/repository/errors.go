package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("progress not found")
	ErrClosed       = errors.New("store closed")
	ErrInvalidEntry = errors.New("invalid progress entry")
)
