package store

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique attribute (email, token) is already taken.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrLockNotAcquired is returned when a non-blocking lock is held by another caller.
	ErrLockNotAcquired = errors.New("store: lock not acquired")
	// ErrConflict is returned when optimistic retries are exhausted.
	ErrConflict = errors.New("store: conflict")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrOriginMismatch is returned when a refresh token is attached to a non-API session.
	ErrOriginMismatch = errors.New("store: refresh token requires api session")
)
