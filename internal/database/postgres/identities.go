package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/pgvector/pgvector-go"
)

const identityColumns = `id, identity_key, name, descriptor, model, image_path, attributes, enrolled_at`

// IdentityRepository provides PostgreSQL-backed identity storage with an
// optional in-memory HNSW index.
type IdentityRepository struct {
	pool          *Pool
	dim           int
	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string // Path to persist HNSW index (optional)
	hnswMu        sync.RWMutex
}

// NewIdentityRepository creates a new PostgreSQL identity repository for
// descriptors of the given length.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// FindByKey retrieves an identity by key, returns nil if not found.
func (r *IdentityRepository) FindByKey(ctx context.Context, key string) (*database.StoredIdentity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE identity_key = $1`

	identity, err := scanIdentityRow(r.pool.QueryRow(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("find identity", err)
	}
	return &identity, nil
}

// ListAll returns every identity ordered by key. A single statement runs
// against one snapshot, so concurrent inserts are all-or-nothing.
func (r *IdentityRepository) ListAll(ctx context.Context) ([]database.StoredIdentity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY identity_key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapStoreError("list identities", err)
	}
	defer rows.Close()

	identities, err := scanIdentities(rows)
	if err != nil {
		return nil, wrapStoreError("list identities", err)
	}
	return identities, nil
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, wrapStoreError("count identities", err)
	}
	return count, nil
}

// Insert stores a new identity. The unique constraint on identity_key makes
// the check-then-insert atomic: of two concurrent inserts for one key exactly
// one succeeds and the other gets database.ErrDuplicateKey.
func (r *IdentityRepository) Insert(ctx context.Context, identity database.StoredIdentity) (*database.StoredIdentity, error) {
	if len(identity.Descriptor) != r.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", database.ErrDimensionMismatch, len(identity.Descriptor), r.dim)
	}

	attrs := identity.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}

	query := `
		INSERT INTO identities (identity_key, name, descriptor, model, image_path, attributes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity_key) DO NOTHING
		RETURNING id, enrolled_at
	`

	err = r.pool.QueryRow(ctx, query,
		identity.Key,
		identity.Name,
		pgvector.NewVector(identity.Descriptor),
		nullString(identity.Model),
		nullString(identity.ImagePath),
		string(attrsJSON),
	).Scan(&identity.ID, &identity.EnrolledAt)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return nil, database.ErrDuplicateKey
	}
	if err != nil {
		return nil, wrapStoreError("insert identity", err)
	}
	identity.Attributes = attrs

	r.hnswMu.RLock()
	if r.hnswEnabled && r.hnswIndex != nil {
		r.hnswIndex.Add(identity)
	}
	r.hnswMu.RUnlock()

	return &identity, nil
}

// Delete removes an identity by key and reports whether it existed.
func (r *IdentityRepository) Delete(ctx context.Context, key string) (bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, "DELETE FROM identities WHERE identity_key = $1 RETURNING id", key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreError("delete identity", err)
	}

	r.hnswMu.RLock()
	if r.hnswIndex != nil {
		r.hnswIndex.Delete(id)
	}
	r.hnswMu.RUnlock()

	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanIdentityRow scans a single row into a StoredIdentity.
func scanIdentityRow(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var vec pgvector.Vector
	var model, imagePath sql.NullString
	var attrs []byte

	err := scanner.Scan(
		&identity.ID,
		&identity.Key,
		&identity.Name,
		&vec,
		&model,
		&imagePath,
		&attrs,
		&identity.EnrolledAt,
	)
	if err != nil {
		return identity, fmt.Errorf("scan identity: %w", err)
	}

	identity.Descriptor = vec.Slice()
	identity.Model = model.String
	identity.ImagePath = imagePath.String
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &identity.Attributes); err != nil {
			return identity, fmt.Errorf("decode attributes of %s: %w", identity.Key, err)
		}
	}
	return identity, nil
}

func scanIdentities(rows *sql.Rows) ([]database.StoredIdentity, error) {
	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}
