package facematch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFaceDetected means the image holds no face. Services turn it into an outcome.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrExtractionTimeout means the embedding provider did not answer in time.
	ErrExtractionTimeout = errors.New("face extraction timed out")

	// ErrExtractionFailed wraps any other embedding provider failure.
	ErrExtractionFailed = errors.New("face extraction failed")
)

// ValidationError lists the enrollment fields that were missing or invalid.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Missing, ", "))
}
