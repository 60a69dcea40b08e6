package domain

import "errors"

// --- DOMAIN ERRORS ---
var (
	// ErrInvalidCursor covers malformed, truncated, tampered and strategy-mismatched tokens.
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrInvalidStrategy = errors.New("invalid sort strategy")
	ErrPostNotFound    = errors.New("post not found")

	// ErrStoreUnavailable wraps every failure of a backing store (database, cache, broker).
	ErrStoreUnavailable = errors.New("store unavailable")
)
