package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face enrollment and recognition service",
	Long: `Facegate enrolls people by binding a face descriptor to an identity key
and recognizes probe photos against the enrolled gallery.

It runs as an HTTP API (serve) or as one-shot CLI commands that talk to the
same PostgreSQL store.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
