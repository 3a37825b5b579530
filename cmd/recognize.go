package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize a probe photo against enrolled identities",
	Long: `Extract the face descriptor from a probe photo and report the enrolled
identity with the smallest distance below the threshold.

Examples:
  facegate recognize probe.jpg
  facegate recognize probe.jpg --threshold 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Acceptance threshold (defaults to MATCH_THRESHOLD)")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecognizeOutput is the result of a CLI recognition.
type RecognizeOutput struct {
	File        string  `json:"file"`
	Outcome     string  `json:"outcome"`
	IdentityKey string  `json:"identity_key,omitempty"`
	Name        string  `json:"name,omitempty"`
	Distance    float64 `json:"distance,omitempty"`
	Threshold   float64 `json:"threshold"`
	Candidates  int     `json:"candidates"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	if threshold <= 0 {
		threshold = cfg.Matching.Threshold
	}

	img, err := loadImageFile(args[0])
	if err != nil {
		return err
	}

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

	matcher := facematch.NewMatcher(extractor, newSearcher(ctx, cfg, repo), threshold)
	result, err := matcher.Recognize(ctx, img)
	if err != nil {
		return fmt.Errorf("recognizing %s: %w", args[0], err)
	}

	out := RecognizeOutput{
		File:        args[0],
		Outcome:     string(result.Outcome),
		IdentityKey: result.IdentityKey,
		Name:        result.Name,
		Distance:    result.Distance,
		Threshold:   result.Threshold,
		Candidates:  result.Candidates,
	}
	if jsonOutput {
		return outputJSON(out)
	}

	switch result.Outcome {
	case facematch.OutcomeMatched:
		fmt.Printf("Matched %s", out.IdentityKey)
		if out.Name != "" {
			fmt.Printf(" (%s)", out.Name)
		}
		fmt.Printf(" at distance %.4f\n", out.Distance)
	case facematch.OutcomeNoMatch:
		fmt.Printf("No match below threshold %.2f among %d identities\n", out.Threshold, out.Candidates)
	case facematch.OutcomeMatchNoFace:
		fmt.Printf("No face detected in %s\n", out.File)
	}
	return nil
}
