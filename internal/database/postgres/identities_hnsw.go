package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facegate/internal/database"
)

// identityStats returns the row count and highest id, used to detect a stale cached index.
func (r *IdentityRepository) identityStats(ctx context.Context) (count, maxID int64, err error) {
	err = r.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(MAX(id), 0) FROM identities").Scan(&count, &maxID)
	if err != nil {
		return 0, 0, wrapStoreError("identity stats", err)
	}
	return count, maxID, nil
}

// tryLoadIndex attempts to load the HNSW index from disk.
// Returns nil if the cached files are missing, stale or unreadable.
func (r *IdentityRepository) tryLoadIndex(indexPath string, count, maxID int64) *database.HNSWIndex {
	metadata, err := database.LoadHNSWMetadata(indexPath)
	if err != nil {
		fmt.Printf("Identity index: metadata file error: %v (will rebuild)\n", err)
		return nil
	}
	if !metadata.IsFresh(count, maxID, r.dim) {
		fmt.Printf("Identity index: stale (db: count=%d max_id=%d, cached: count=%d max_id=%d) (will rebuild)\n",
			count, maxID, metadata.IdentityCount, metadata.MaxIdentityID)
		return nil
	}

	index := database.NewHNSWIndex()
	if err := index.Load(indexPath); err != nil {
		fmt.Printf("Identity index: failed to load: %v (will rebuild)\n", err)
		return nil
	}
	if index.IsEmpty() {
		fmt.Printf("Identity index: loaded graph is empty (will rebuild)\n")
		return nil
	}
	fmt.Printf("Identity index: loaded from disk (fresh)\n")
	return index
}

// EnableHNSW loads or builds the in-memory HNSW index.
// If indexPath is provided, it will try to load from disk first and save after building.
// This should be called once at startup.
func (r *IdentityRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	count, maxID, err := r.identityStats(ctx)
	if err != nil {
		return err
	}

	if indexPath != "" {
		if index := r.tryLoadIndex(indexPath, count, maxID); index != nil {
			r.hnswIndex = index
			r.hnswEnabled = true
			return nil
		}
	}

	identities, err := r.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}

	index := database.NewHNSWIndex()
	index.Build(identities)

	if indexPath != "" && len(identities) > 0 {
		metadata := database.HNSWIndexMetadata{IdentityCount: count, MaxIdentityID: maxID, Dim: r.dim}
		if err := index.Save(indexPath, metadata); err != nil {
			fmt.Printf("Warning: failed to save HNSW index to disk: %v\n", err)
		}
	}

	r.hnswIndex = index
	r.hnswEnabled = true
	return nil
}

// IsHNSWEnabled returns whether the in-memory HNSW index is enabled.
func (r *IdentityRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// HNSWCount returns the number of identities in the HNSW index.
func (r *IdentityRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// RebuildHNSW rebuilds the HNSW index from PostgreSQL data.
func (r *IdentityRepository) RebuildHNSW(ctx context.Context) error {
	r.hnswMu.RLock()
	indexPath := r.hnswIndexPath
	r.hnswMu.RUnlock()
	return r.EnableHNSW(ctx, indexPath)
}

// SearchNearest returns up to k identities closest to the descriptor from the HNSW index.
func (r *IdentityRepository) SearchNearest(
	ctx context.Context, descriptor []float32, k int,
) ([]database.StoredIdentity, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if !r.hnswEnabled || r.hnswIndex == nil {
		return nil, errors.New("HNSW index not initialized")
	}
	if r.hnswIndex.IsEmpty() {
		return nil, nil
	}

	identities, _, err := r.hnswIndex.Search(descriptor, k)
	if err != nil {
		return nil, fmt.Errorf("HNSW search: %w", err)
	}
	return identities, nil
}

// SaveHNSWIndex saves the current HNSW index to disk (if path configured).
func (r *IdentityRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" {
		fmt.Println("Identity index save: no path configured, skipping")
		return nil
	}
	if r.hnswIndex == nil {
		fmt.Println("Identity index save: no index in memory, skipping")
		return nil
	}

	count, maxID, err := r.identityStats(context.Background())
	if err != nil {
		return err
	}

	metadata := database.HNSWIndexMetadata{IdentityCount: count, MaxIdentityID: maxID, Dim: r.dim}
	if err := r.hnswIndex.Save(r.hnswIndexPath, metadata); err != nil {
		return fmt.Errorf("saving HNSW identity index: %w", err)
	}

	fmt.Printf("Identity index save: saved successfully (count=%d, max_id=%d)\n", count, maxID)
	return nil
}
