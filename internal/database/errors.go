package database

import "errors"

var (
	// ErrDuplicateKey is returned by Insert when the identity key is already enrolled.
	ErrDuplicateKey = errors.New("identity key already enrolled")

	// ErrStoreUnavailable wraps failures to reach the backing store.
	ErrStoreUnavailable = errors.New("identity store unavailable")

	// ErrDimensionMismatch is returned when a descriptor has the wrong length for the store.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")
)
