package facematch

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/facegate/internal/constants"
)

// Matcher recognizes a probe face against the enrolled gallery.
// It holds no per-request state; each call reads a fresh snapshot.
type Matcher struct {
	extractor Extractor
	searcher  Searcher
	threshold float64
}

// NewMatcher creates a matcher with a fixed acceptance threshold.
// A non-positive threshold selects constants.DefaultMatchThreshold.
func NewMatcher(extractor Extractor, searcher Searcher, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultMatchThreshold
	}
	return &Matcher{
		extractor: extractor,
		searcher:  searcher,
		threshold: threshold,
	}
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Recognize matches img using the configured threshold.
func (m *Matcher) Recognize(ctx context.Context, img image.Image) (*MatchResult, error) {
	return m.RecognizeWithThreshold(ctx, img, m.threshold)
}

// RecognizeWithThreshold returns the enrolled identity with the smallest
// distance strictly below threshold, ties going to the smallest key.
func (m *Matcher) RecognizeWithThreshold(ctx context.Context, img image.Image, threshold float64) (*MatchResult, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &ValidationError{Missing: []string{"image"}}
	}

	probe, err := m.extractor.Extract(ctx, img)
	if errors.Is(err, ErrNoFaceDetected) {
		return &MatchResult{Outcome: OutcomeMatchNoFace, Threshold: threshold}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extracting probe descriptor: %w", err)
	}

	candidates, err := m.searcher.Candidates(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("loading enrolled identities: %w", err)
	}

	result := &MatchResult{Outcome: OutcomeNoMatch, Threshold: threshold, Candidates: len(candidates)}
	best, distance := selectBest(probe, candidates, threshold)
	if best == nil {
		return result, nil
	}

	result.Outcome = OutcomeMatched
	result.IdentityKey = best.Key
	result.Name = best.Name
	result.ImagePath = best.ImagePath
	result.Distance = distance
	return result, nil
}
