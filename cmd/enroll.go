package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll a single photo under an identity key",
	Long: `Extract the face descriptor from a photo and store it under an identity key.

Required metadata fields are configured in the enrollment rules
(ENROLL_REQUIRED_FIELDS overrides the built-in list).

Examples:
  facegate enroll alice.jpg --key S001 --field name="Alice Smith" --field email=alice@example.com
  facegate enroll bob.png --key S002 --field name=Bob --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("key", "", "Identity key (defaults to the file name without extension)")
	enrollCmd.Flags().StringToString("field", nil, "Metadata field as name=value (repeatable)")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// EnrollOutput is the result of a CLI enrollment.
type EnrollOutput struct {
	File        string   `json:"file"`
	Outcome     string   `json:"outcome"`
	IdentityKey string   `json:"identity_key"`
	Missing     []string `json:"missing,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// keyFromFile derives an identity key from a photo file name.
func keyFromFile(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// enrollFile loads one photo and enrolls it. Infrastructure errors are returned;
// business outcomes are reported in the output.
func enrollFile(ctx context.Context, enroller *facematch.Enroller, path, key string, fields map[string]string) (EnrollOutput, error) {
	out := EnrollOutput{File: path}
	img, err := loadImageFile(path)
	if err != nil {
		return out, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	result, err := enroller.Enroll(ctx, facematch.EnrollRequest{
		Key:       key,
		Image:     img,
		Metadata:  fields,
		ImagePath: absPath,
	})
	if err != nil {
		return out, err
	}

	out.Outcome = string(result.Outcome)
	out.IdentityKey = result.Key
	out.Missing = result.Missing
	return out, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	key := mustGetString(cmd, "key")
	fields := mustGetStringToString(cmd, "field")
	jsonOutput := mustGetBool(cmd, "json")

	if key == "" {
		key = keyFromFile(args[0])
	}

	ctx := context.Background()
	cfg := config.Load()

	repo, err := openIdentityStore(cfg)
	if err != nil {
		return err
	}
	defer closeIdentityStore()

	extractor, release, err := newExtractor(cfg, metrics.New())
	if err != nil {
		return err
	}
	defer release()

	out, err := enrollFile(ctx, newEnroller(cfg, extractor, repo), args[0], key, fields)
	if err != nil {
		return fmt.Errorf("enrolling %s: %w", args[0], err)
	}

	if jsonOutput {
		return outputJSON(out)
	}
	printEnrollOutput(out)
	return nil
}

func printEnrollOutput(out EnrollOutput) {
	switch facematch.EnrollOutcome(out.Outcome) {
	case facematch.OutcomeEnrolled:
		fmt.Printf("Enrolled %s from %s\n", out.IdentityKey, out.File)
	case facematch.OutcomeAlreadyEnrolled:
		fmt.Printf("%s is already enrolled\n", out.IdentityKey)
	case facematch.OutcomeEnrollNoFace:
		fmt.Printf("No face detected in %s\n", out.File)
	case facematch.OutcomeValidationFailed:
		fmt.Printf("Missing required fields: %s\n", strings.Join(out.Missing, ", "))
	}
}
