package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the identity HNSW index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the identity HNSW index from PostgreSQL and save it",
	Long: `Rebuild the in-memory HNSW index over all enrolled descriptors and save it
to HNSW_INDEX_PATH so the server can load it on startup.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	if cfg.Database.HNSWIndexPath == "" {
		return errors.New("HNSW_INDEX_PATH environment variable is required")
	}

	repo, err := openIdentityStore(cfg)
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	if err := repo.EnableHNSW(ctx, cfg.Database.HNSWIndexPath); err != nil {
		return fmt.Errorf("enabling HNSW index: %w", err)
	}

	rebuilder := database.GetIdentityHNSWRebuilder()
	if err := rebuilder.RebuildHNSW(ctx); err != nil {
		return fmt.Errorf("rebuilding HNSW index: %w", err)
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		return fmt.Errorf("saving HNSW index: %w", err)
	}
	fmt.Printf("HNSW index rebuilt with %d identities and saved to %s\n", rebuilder.HNSWCount(), cfg.Database.HNSWIndexPath)
	return nil
}
