package database

import (
	"context"
	"fmt"
)

// HNSWRebuilder is an interface for repositories that support HNSW index rebuilding
type HNSWRebuilder interface {
	// RebuildHNSW rebuilds the in-memory HNSW index
	RebuildHNSW(ctx context.Context) error
	// HNSWCount returns the number of items in the HNSW index
	HNSWCount() int
	// IsHNSWEnabled returns whether HNSW is enabled
	IsHNSWEnabled() bool
	// SaveHNSWIndex saves the current index to disk (if path configured)
	SaveHNSWIndex() error
}

var (
	postgresIdentityReader func() IdentityReader
	postgresIdentityWriter func() IdentityWriter
	postgresIdentityHNSW   HNSWRebuilder // Singleton for identity HNSW rebuilding
	postgresInitialized    bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	reader func() IdentityReader,
	writer func() IdentityWriter,
) {
	postgresIdentityReader = reader
	postgresIdentityWriter = writer
	postgresInitialized = true
}

// RegisterIdentityHNSWRebuilder registers the HNSW rebuilder for the identity repository.
func RegisterIdentityHNSWRebuilder(rebuilder HNSWRebuilder) {
	postgresIdentityHNSW = rebuilder
}

// GetIdentityHNSWRebuilder returns the registered identity HNSW rebuilder, or nil if not registered.
func GetIdentityHNSWRebuilder() HNSWRebuilder {
	return postgresIdentityHNSW
}

// GetIdentityReader returns an IdentityReader from the PostgreSQL backend
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresIdentityReader == nil {
		return nil, fmt.Errorf("PostgreSQL identity reader not registered")
	}
	return postgresIdentityReader(), nil
}

// GetIdentityWriter returns an IdentityWriter from the PostgreSQL backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresIdentityWriter == nil {
		return nil, fmt.Errorf("PostgreSQL identity writer not registered")
	}
	return postgresIdentityWriter(), nil
}
