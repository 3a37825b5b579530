package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Inspect and manage enrolled identities",
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Args:  cobra.NoArgs,
	RunE:  runIdentityList,
}

var identityShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show one enrolled identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityShow,
}

var identityDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete an enrolled identity so the key can be enrolled again",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityDelete,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityListCmd, identityShowCmd, identityDeleteCmd)

	identityListCmd.Flags().Bool("json", false, "Output as JSON")
	identityShowCmd.Flags().Bool("json", false, "Output as JSON")
}

// identityReader opens the store and returns the registered reader.
func identityReader(ctx context.Context, cfg *config.Config) (database.IdentityReader, error) {
	if _, err := openIdentityStore(cfg); err != nil {
		return nil, err
	}
	return database.GetIdentityReader(ctx)
}

// identityWriter opens the store and returns the registered writer.
func identityWriter(ctx context.Context, cfg *config.Config) (database.IdentityWriter, error) {
	if _, err := openIdentityStore(cfg); err != nil {
		return nil, err
	}
	return database.GetIdentityWriter(ctx)
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	store, err := identityReader(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	identities, err := store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	summaries := make([]database.IdentitySummary, 0, len(identities))
	for i := range identities {
		summaries = append(summaries, identities[i].Summary())
	}
	if jsonOutput {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No identities enrolled.")
		return nil
	}
	fmt.Printf("%-20s %-30s %s\n", "KEY", "NAME", "ENROLLED")
	for _, s := range summaries {
		fmt.Printf("%-20s %-30s %s\n", s.Key, s.Name, s.EnrolledAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d identities\n", len(summaries))
	return nil
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()
	key := facematch.NormalizeKey(args[0])

	store, err := identityReader(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	identity, err := store.FindByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", key, err)
	}
	if identity == nil {
		return fmt.Errorf("identity %s not found", key)
	}

	summary := identity.Summary()
	if jsonOutput {
		return outputJSON(summary)
	}

	fmt.Printf("Key:      %s\n", summary.Key)
	fmt.Printf("Name:     %s\n", summary.Name)
	fmt.Printf("Enrolled: %s\n", summary.EnrolledAt.Format("2006-01-02 15:04:05"))
	if summary.Model != "" {
		fmt.Printf("Model:    %s\n", summary.Model)
	}
	if summary.ImagePath != "" {
		fmt.Printf("Photo:    %s\n", summary.ImagePath)
	}
	if len(summary.Attributes) > 0 {
		fmt.Println("Attributes:")
		names := make([]string, 0, len(summary.Attributes))
		for name := range summary.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		width := 0
		for _, name := range names {
			width = max(width, len(name))
		}
		for _, name := range names {
			fmt.Printf("  %s%s  %s\n", name, strings.Repeat(" ", width-len(name)), summary.Attributes[name])
		}
	}
	return nil
}

func runIdentityDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key := facematch.NormalizeKey(args[0])

	store, err := identityWriter(ctx, config.Load())
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	deleted, err := store.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	if !deleted {
		return fmt.Errorf("identity %s not found", key)
	}
	fmt.Printf("Deleted identity %s\n", key)
	return nil
}
