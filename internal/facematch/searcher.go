package facematch

import (
	"context"
	"log"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
)

// Searcher yields the identities a probe descriptor is compared against.
type Searcher interface {
	Candidates(ctx context.Context, probe Descriptor) ([]database.StoredIdentity, error)
}

// ScanSearcher returns the full gallery snapshot, so matching is exact.
type ScanSearcher struct {
	store database.IdentityReader
}

// NewScanSearcher creates a searcher over every enrolled identity.
func NewScanSearcher(store database.IdentityReader) *ScanSearcher {
	return &ScanSearcher{store: store}
}

// Candidates returns all enrolled identities.
func (s *ScanSearcher) Candidates(ctx context.Context, probe Descriptor) ([]database.StoredIdentity, error) {
	return s.store.ListAll(ctx)
}

// IndexSearcher narrows the gallery to the k nearest neighbours from an HNSW
// index. Exact distances and the tie-break are still applied by the Matcher,
// but only over the candidates; the lowest-key tie-break across the whole
// gallery is guaranteed only with ScanSearcher.
// It falls back to a full scan when the index is disabled or fails.
type IndexSearcher struct {
	index    database.IdentitySearcher
	fallback Searcher
	k        int
}

// NewIndexSearcher creates an index-backed searcher.
func NewIndexSearcher(index database.IdentitySearcher, fallback Searcher, k int) *IndexSearcher {
	if k <= 0 {
		k = constants.DefaultIndexCandidates
	}
	return &IndexSearcher{index: index, fallback: fallback, k: k}
}

// Candidates returns up to k approximate nearest identities.
func (s *IndexSearcher) Candidates(ctx context.Context, probe Descriptor) ([]database.StoredIdentity, error) {
	if !s.index.IsHNSWEnabled() {
		return s.fallback.Candidates(ctx, probe)
	}
	identities, err := s.index.SearchNearest(ctx, probe, s.k)
	if err != nil {
		log.Printf("Index search failed, falling back to full scan: %v", err)
		return s.fallback.Candidates(ctx, probe)
	}
	return identities, nil
}
