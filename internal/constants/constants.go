// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the maximum Euclidean distance accepted as a match.
	// A candidate must be strictly below it.
	DefaultMatchThreshold = 0.6

	// DefaultDescriptorDim is the length of a dlib/face-api face descriptor
	DefaultDescriptorDim = 128

	// DefaultIndexCandidates is the number of nearest neighbours requested from
	// the HNSW index before exact re-ranking
	DefaultIndexCandidates = 32
)

// Extraction constants
const (
	// DefaultExtractionTimeout bounds a single call to the embedding provider
	DefaultExtractionTimeout = 15 * time.Second

	// DefaultExtractionRetries is how many times a timed out extraction is retried
	DefaultExtractionRetries = 2

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding provider
	MaxImageSize = 1280

	// JPEGQuality is used when re-encoding images for the embedding provider
	JPEGQuality = 90
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for batch enrollment
	WorkerPoolSize = 4
)

// One-time code constants
const (
	// DefaultOTPTTL is how long an issued one-time code stays valid
	DefaultOTPTTL = 5 * time.Minute

	// OTPDigits is the number of decimal digits in a one-time code
	OTPDigits = 6

	// OTPSweepInterval is how often the in-memory code store evicts expired entries
	OTPSweepInterval = time.Minute
)
