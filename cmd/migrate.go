package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply pending PostgreSQL migrations. The descriptor column is created with
EMBEDDING_DIM dimensions.

Use --status to list applied and pending migrations without applying them.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "Show migration status only")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	statusOnly := mustGetBool(cmd, "status")
	ctx := context.Background()
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	if !statusOnly {
		if _, err := openIdentityStore(cfg); err != nil {
			return err
		}
		defer closeIdentityStore()
		fmt.Println("Migrations applied")
		return nil
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return err
	}
	pending, err := pool.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		fmt.Printf("  applied  %s\n", name)
	}
	for _, name := range pending {
		fmt.Printf("  pending  %s\n", name)
	}
	return nil
}
