package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/otp"
	"github.com/kozaktomas/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the Facegate HTTP API.

Public endpoints (rate limited per client):
  POST /api/v1/enroll       enroll a photo with identity metadata
  POST /api/v1/recognize    recognize a probe photo
  POST /api/v1/otp/verify   verify a one-time code

Admin endpoints (Authorization: Bearer $WEB_ADMIN_TOKEN):
  GET    /api/v1/identities
  GET    /api/v1/identities/{key}
  DELETE /api/v1/identities/{key}
  POST   /api/v1/otp/issue`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// applyServeFlags lets explicit flags override the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	repo, err := openIdentityStore(cfg)
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	m := metrics.New()
	extractor, releaseExtractor, err := newExtractor(cfg, m)
	if err != nil {
		return err
	}
	defer releaseExtractor()

	codes, closeCodes, err := newCodeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCodes()

	if cfg.Web.AdminToken == "" {
		fmt.Println("Warning: WEB_ADMIN_TOKEN is not set, admin endpoints are disabled")
	}

	server := web.NewServer(cfg, web.Services{
		Enroller:   newEnroller(cfg, extractor, repo),
		Matcher:    facematch.NewMatcher(extractor, newSearcher(ctx, cfg, repo), cfg.Matching.Threshold),
		Identities: repo,
		OTP:        otp.NewService(codes, repo, cfg.OTP.TTL),
		Metrics:    m,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveHNSWIndex()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facegate API on http://%s:%d (threshold %.2f)\n", cfg.Web.Host, cfg.Web.Port, cfg.Matching.Threshold)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
