package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Enroll every photo in a directory",
	Long: `Enroll all photos in a directory. The identity key of each photo is its
file name without extension.

Per-identity metadata can be supplied as a JSON file mapping keys to fields:

  {"S001": {"name": "Alice Smith", "email": "alice@example.com"}}

Fields given with --field apply to every photo and are overridden by the
metadata file.

Examples:
  facegate enroll-dir ./photos --metadata people.json
  facegate enroll-dir ./photos --metadata people.json --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().String("metadata", "", "JSON file with metadata per identity key")
	enrollDirCmd.Flags().StringToString("field", nil, "Metadata field applied to every photo as name=value")
	enrollDirCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel enrollments")
	enrollDirCmd.Flags().Bool("json", false, "Output as JSON")
}

// EnrollDirResult summarizes a directory enrollment.
type EnrollDirResult struct {
	Success         bool           `json:"success"`
	Total           int            `json:"total"`
	Enrolled        int            `json:"enrolled"`
	AlreadyEnrolled int            `json:"already_enrolled"`
	NoFace          int            `json:"no_face"`
	Invalid         int            `json:"invalid"`
	Errors          int            `json:"errors"`
	Files           []EnrollOutput `json:"files"`
	DurationMs      int64          `json:"duration_ms"`
	DurationHuman   string         `json:"duration_human,omitempty"`
}

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// listPhotos returns the photo files directly inside dir, sorted by name.
func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !photoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// loadMetadataFile reads a key -> fields JSON document. Keys are normalized
// the same way as identity keys.
func loadMetadataFile(path string) (map[string]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing metadata file: %w", err)
	}
	out := make(map[string]map[string]string, len(raw))
	for k, v := range raw {
		out[facematch.NormalizeKey(k)] = v
	}
	return out, nil
}

// mergeFields overlays per-identity fields on the shared ones.
func mergeFields(shared, own map[string]string) map[string]string {
	merged := make(map[string]string, len(shared)+len(own))
	maps.Copy(merged, shared)
	maps.Copy(merged, own)
	return merged
}

// tally updates the summary counters for one output.
func (r *EnrollDirResult) tally(out EnrollOutput) {
	switch facematch.EnrollOutcome(out.Outcome) {
	case facematch.OutcomeEnrolled:
		r.Enrolled++
	case facematch.OutcomeAlreadyEnrolled:
		r.AlreadyEnrolled++
	case facematch.OutcomeEnrollNoFace:
		r.NoFace++
	case facematch.OutcomeValidationFailed:
		r.Invalid++
	default:
		r.Errors++
	}
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	metadataPath := mustGetString(cmd, "metadata")
	shared := mustGetStringToString(cmd, "field")
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	files, err := listPhotos(args[0])
	if err != nil {
		return err
	}
	perKey, err := loadMetadataFile(metadataPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if jsonOutput {
			return outputJSON(EnrollDirResult{Success: true, Files: []EnrollOutput{}})
		}
		fmt.Println("No photos found.")
		return nil
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
	enroller := newEnroller(cfg, extractor, repo)

	if !jsonOutput {
		fmt.Printf("Found %d photos to enroll\n\n", len(files))
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	outputs := make([]EnrollOutput, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, path := range files {
		g.Go(func() error {
			key := keyFromFile(path)
			out, err := enrollFile(gctx, enroller, path, key, mergeFields(shared, perKey[facematch.NormalizeKey(key)]))
			if err != nil {
				out.IdentityKey = facematch.NormalizeKey(key)
				out.Error = err.Error()
			}
			outputs[i] = out
			if bar != nil {
				bar.Add(1)
			}
			// An unreachable store fails every remaining photo, so stop early.
			if errors.Is(err, database.ErrStoreUnavailable) {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := EnrollDirResult{
		Total:         len(files),
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}
	for _, out := range outputs {
		if out.File == "" {
			continue
		}
		result.Files = append(result.Files, out)
		result.tally(out)
	}
	result.Success = waitErr == nil

	if jsonOutput {
		result.DurationHuman = ""
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		printEnrollDirResult(result)
	}

	if waitErr != nil {
		return fmt.Errorf("enrollment aborted: %w", waitErr)
	}
	return nil
}

func printEnrollDirResult(result EnrollDirResult) {
	for _, out := range result.Files {
		switch {
		case out.Error != "":
			fmt.Printf("  %s: error: %s\n", out.File, out.Error)
		case facematch.EnrollOutcome(out.Outcome) == facematch.OutcomeEnrollNoFace:
			fmt.Printf("  %s: no face detected\n", out.File)
		case facematch.EnrollOutcome(out.Outcome) == facematch.OutcomeValidationFailed:
			fmt.Printf("  %s: missing %s\n", out.File, strings.Join(out.Missing, ", "))
		}
	}

	fmt.Println("\nEnrollment complete!")
	fmt.Printf("  Photos:           %d\n", result.Total)
	fmt.Printf("  Enrolled:         %d\n", result.Enrolled)
	fmt.Printf("  Already enrolled: %d\n", result.AlreadyEnrolled)
	if result.NoFace > 0 {
		fmt.Printf("  No face:          %d\n", result.NoFace)
	}
	if result.Invalid > 0 {
		fmt.Printf("  Invalid:          %d\n", result.Invalid)
	}
	if result.Errors > 0 {
		fmt.Printf("  Errors:           %d\n", result.Errors)
	}
	fmt.Printf("  Duration:         %s\n", result.DurationHuman)
}
