package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// FindByKey retrieves an identity by key, returns nil if not found
	FindByKey(ctx context.Context, key string) (*StoredIdentity, error)
	// ListAll returns every enrolled identity ordered by key.
	// The result is a single consistent snapshot: a concurrent insert is either
	// fully included or fully absent.
	ListAll(ctx context.Context) ([]StoredIdentity, error)
	// Count returns the number of enrolled identities
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled identities
type IdentityWriter interface {
	IdentityReader

	// Insert atomically stores a new identity. Returns ErrDuplicateKey if the
	// key is already enrolled; an existing record is never overwritten.
	Insert(ctx context.Context, identity StoredIdentity) (*StoredIdentity, error)

	// Delete removes an identity by key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
}

// IdentitySearcher returns approximate nearest neighbours from an in-memory index.
type IdentitySearcher interface {
	// SearchNearest returns up to k identities closest to the descriptor.
	SearchNearest(ctx context.Context, descriptor []float32, k int) ([]StoredIdentity, error)
	// IsHNSWEnabled returns whether the index is loaded and usable
	IsHNSWEnabled() bool
}
