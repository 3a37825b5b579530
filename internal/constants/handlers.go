package constants

// Upload constants
const (
	// MaxUploadSize is the maximum accepted multipart body for enroll and recognize requests
	MaxUploadSize = 10 << 20

	// MaxMultipartMemory is the part of a multipart form kept in memory before spilling to disk
	MaxMultipartMemory = 8 << 20
)

// Rate limiting constants
const (
	// DefaultRecognizeRate is the sustained number of recognize/verify requests per second per client
	DefaultRecognizeRate = 5

	// DefaultRecognizeBurst is the burst allowance for recognize/verify requests per client
	DefaultRecognizeBurst = 10
)

// Listing constants
const (
	// DefaultIdentityPageSize is the default page size for the identity listing endpoint
	DefaultIdentityPageSize = 100
)
