package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/postgres"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/fingerprint"
	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/ttlstore"
)

// openIdentityStore connects to PostgreSQL, applies migrations and registers
// the identity repository as the database backend.
func openIdentityStore(cfg *config.Config) (*postgres.IdentityRepository, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database, cfg.Embedding.Dim); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repo := postgres.NewIdentityRepository(postgres.GetGlobalPool(), cfg.Embedding.Dim)
	database.RegisterPostgresBackend(
		func() database.IdentityReader { return repo },
		func() database.IdentityWriter { return repo },
	)
	database.RegisterIdentityHNSWRebuilder(repo)
	return repo, nil
}

// closeIdentityStore closes the global pool if one was opened.
func closeIdentityStore() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		if err := pool.Close(); err != nil {
			log.Printf("Failed to close database pool: %v", err)
		}
	}
}

// initIdentityHNSW builds or loads the identity HNSW index for candidate search.
func initIdentityHNSW(ctx context.Context, repo *postgres.IdentityRepository, indexPath string) {
	if indexPath != "" {
		fmt.Printf("Loading identity HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for identities...\n")
	}
	if err := repo.EnableHNSW(ctx, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build identity HNSW index: %v\n", err)
		fmt.Printf("Matching will scan all enrolled identities\n")
	} else if indexPath != "" {
		fmt.Printf("Identity HNSW index ready with %d identities (persisted to %s)\n", repo.HNSWCount(), indexPath)
	} else {
		fmt.Printf("Identity HNSW index built with %d identities (in-memory only)\n", repo.HNSWCount())
	}
}

// saveHNSWIndex persists the identity index during shutdown.
func saveHNSWIndex() {
	rebuilder := database.GetIdentityHNSWRebuilder()
	if rebuilder == nil || !rebuilder.IsHNSWEnabled() {
		return
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		fmt.Printf("Warning: failed to save identity HNSW index: %v\n", err)
	} else {
		fmt.Println("Identity HNSW index saved to disk")
	}
}

// newExtractor builds the configured descriptor backend, wrapped with latency
// metrics and the per-attempt timeout and retry policy. The returned func
// releases backend resources.
func newExtractor(cfg *config.Config, m *metrics.Metrics) (facematch.Extractor, func() error, error) {
	var base facematch.Extractor
	release := func() error { return nil }

	switch cfg.Embedding.Backend {
	case "", "http":
		client := fingerprint.NewEmbeddingClient(cfg.Embedding.URL, "")
		checkEmbeddingServer(client)
		base = fingerprint.NewFaceExtractor(client, cfg.Embedding.Dim)
	case "dlib":
		extractor, err := fingerprint.NewDlibExtractor(cfg.Embedding.DlibModelsDir, cfg.Embedding.DlibCNN)
		if err != nil {
			return nil, nil, err
		}
		base = extractor
		release = extractor.Close
	default:
		return nil, nil, fmt.Errorf("unknown EMBEDDING_BACKEND %q (want http or dlib)", cfg.Embedding.Backend)
	}

	resilient := facematch.NewResilientExtractor(m.InstrumentExtractor(base), cfg.Embedding.Timeout, cfg.Embedding.Retries)
	return resilient, release, nil
}

// checkEmbeddingServer warns when the embedding server is not reachable yet.
// Extraction calls fail with ErrExtractionFailed until it comes up.
func checkEmbeddingServer(client *fingerprint.EmbeddingClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		fmt.Printf("Warning: embedding server is not healthy: %v\n", err)
	}
}

// newSearcher returns the candidate source for matching: a full scan, or the
// HNSW index with a scan fallback when MATCH_USE_INDEX is set.
func newSearcher(ctx context.Context, cfg *config.Config, repo *postgres.IdentityRepository) facematch.Searcher {
	scan := facematch.NewScanSearcher(repo)
	if !cfg.Matching.UseIndex {
		return scan
	}
	initIdentityHNSW(ctx, repo, cfg.Database.HNSWIndexPath)
	return facematch.NewIndexSearcher(repo, scan, cfg.Matching.IndexCandidates)
}

// newEnroller creates an enroller from the enrollment form rules.
func newEnroller(cfg *config.Config, extractor facematch.Extractor, store database.IdentityWriter) *facematch.Enroller {
	return facematch.NewEnroller(extractor, store, facematch.EnrollerOptions{
		RequiredFields:  cfg.Enrollment.RequiredFields,
		NameField:       cfg.Enrollment.NameField,
		DiscardedFields: cfg.Enrollment.DiscardedFields,
		MaxFieldLength:  cfg.Enrollment.MaxFieldLength,
		Dim:             cfg.Embedding.Dim,
	})
}

// newCodeStore opens the one-time code store selected by cfg.OTPBackend.
// The postgres backend requires openIdentityStore to have run first.
func newCodeStore(ctx context.Context, cfg *config.Config) (ttlstore.Store, func() error, error) {
	switch cfg.OTPBackend() {
	case "redis":
		store, err := ttlstore.NewRedisStore(ctx, ttlstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		fmt.Printf("One-time codes stored in Redis at %s\n", cfg.Redis.Addr)
		return store, store.Close, nil
	case "postgres":
		repo := postgres.NewOneTimeCodeRepository(postgres.GetGlobalPool())
		stop := make(chan struct{})
		go purgeExpiredCodes(repo, stop)
		fmt.Println("One-time codes stored in PostgreSQL")
		return repo, func() error { close(stop); return nil }, nil
	default:
		store := ttlstore.NewMemoryStore(constants.OTPSweepInterval)
		fmt.Println("One-time codes stored in process memory")
		return store, store.Close, nil
	}
}

// purgeExpiredCodes deletes expired PostgreSQL codes until stop is closed.
func purgeExpiredCodes(repo *postgres.OneTimeCodeRepository, stop <-chan struct{}) {
	ticker := time.NewTicker(constants.OTPSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(context.Background())
			if err != nil {
				log.Printf("Failed to purge expired one-time codes: %v", err)
			} else if n > 0 {
				log.Printf("Purged %d expired one-time codes", n)
			}
		}
	}
}
