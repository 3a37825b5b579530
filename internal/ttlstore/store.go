// Package ttlstore provides small key-value stores whose entries expire.
package ttlstore

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("store closed")

// Store holds string values that expire after a TTL.
type Store interface {
	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the live value for key; ok is false if missing or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Take atomically returns and removes the live value for key.
	Take(ctx context.Context, key string) (value string, ok bool, err error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
