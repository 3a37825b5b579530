// Package facematch implements face enrollment and recognition on top of an
// embedding provider and an identity store.
package facematch

import (
	"context"
	"image"
)

// Descriptor is a fixed-length face embedding. It is never modified after extraction.
type Descriptor = []float32

// Extractor turns an image into the descriptor of its primary face.
// It returns ErrNoFaceDetected when the image holds no face.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (Descriptor, error)
}

// ModelNamer is implemented by extractors that know which model produced a descriptor.
type ModelNamer interface {
	Model() string
}

// EnrollOutcome is the result category of an enrollment attempt.
type EnrollOutcome string

const (
	OutcomeEnrolled         EnrollOutcome = "enrolled"
	OutcomeAlreadyEnrolled  EnrollOutcome = "already_enrolled"
	OutcomeEnrollNoFace     EnrollOutcome = "no_face_detected"
	OutcomeValidationFailed EnrollOutcome = "validation_failed"
)

// EnrollRequest is the input to Enroller.Enroll.
type EnrollRequest struct {
	Key       string
	Image     image.Image
	Metadata  map[string]string
	ImagePath string // where the caller stored the photo, optional
}

// EnrollResult describes a completed enrollment attempt.
type EnrollResult struct {
	Outcome EnrollOutcome
	Key     string   // canonical identity key
	Missing []string // fields that failed validation
}

// MatchOutcome is the result category of a recognition attempt.
type MatchOutcome string

const (
	OutcomeMatched     MatchOutcome = "matched"
	OutcomeNoMatch     MatchOutcome = "no_match"
	OutcomeMatchNoFace MatchOutcome = "no_face_detected"
)

// MatchResult describes a completed recognition attempt. Distance is set
// only for OutcomeMatched and must not be shown to unauthenticated callers.
type MatchResult struct {
	Outcome     MatchOutcome
	IdentityKey string
	Name        string
	ImagePath   string
	Distance    float64
	Threshold   float64
	Candidates  int // identities compared
}
