package facematch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/kozaktomas/facegate/internal/database"
)

// EnrollerOptions configures enrollment validation.
type EnrollerOptions struct {
	RequiredFields  []string // metadata fields that must be present and non-blank
	NameField       string   // metadata field copied into StoredIdentity.Name
	DiscardedFields []string // accepted from callers but never stored
	MaxFieldLength  int      // 0 disables the length check
	Dim             int      // expected descriptor length, 0 disables the check
}

// Enroller binds a face descriptor to a new identity key.
type Enroller struct {
	extractor Extractor
	store     database.IdentityWriter
	opts      EnrollerOptions
	discarded map[string]struct{}
}

// NewEnroller creates an enroller storing identities in store.
func NewEnroller(extractor Extractor, store database.IdentityWriter, opts EnrollerOptions) *Enroller {
	if opts.NameField == "" {
		opts.NameField = "name"
	}
	discarded := make(map[string]struct{}, len(opts.DiscardedFields))
	for _, f := range opts.DiscardedFields {
		discarded[NormalizeFieldName(f)] = struct{}{}
	}
	return &Enroller{
		extractor: extractor,
		store:     store,
		opts:      opts,
		discarded: discarded,
	}
}

// Enroll validates the request, extracts the descriptor and stores a new
// identity. Business outcomes (already enrolled, no face, invalid input) are
// reported in the result; infrastructure failures are returned as errors
// wrapping database.ErrStoreUnavailable, ErrExtractionTimeout or ErrExtractionFailed.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	key := NormalizeKey(req.Key)
	metadata := e.cleanMetadata(req.Metadata)

	if verr := e.validate(key, req, metadata); verr != nil {
		return &EnrollResult{Outcome: OutcomeValidationFailed, Key: key, Missing: verr.Missing}, nil
	}

	existing, err := e.store.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up identity %s: %w", key, err)
	}
	if existing != nil {
		return &EnrollResult{Outcome: OutcomeAlreadyEnrolled, Key: key}, nil
	}

	descriptor, err := e.extractor.Extract(ctx, req.Image)
	if errors.Is(err, ErrNoFaceDetected) {
		return &EnrollResult{Outcome: OutcomeEnrollNoFace, Key: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extracting descriptor for %s: %w", key, err)
	}
	if e.opts.Dim > 0 && len(descriptor) != e.opts.Dim {
		return nil, fmt.Errorf("%w: descriptor has %d dimensions, want %d", ErrExtractionFailed, len(descriptor), e.opts.Dim)
	}

	identity := database.StoredIdentity{
		Key:        key,
		Name:       NormalizeName(metadata[e.opts.NameField]),
		Descriptor: descriptor,
		ImagePath:  req.ImagePath,
		Attributes: e.attributes(metadata),
	}
	if namer, ok := e.extractor.(ModelNamer); ok {
		identity.Model = namer.Model()
	}

	// A concurrent enrollment may have won since FindByKey; the store's
	// unique key decides.
	if _, err := e.store.Insert(ctx, identity); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return &EnrollResult{Outcome: OutcomeAlreadyEnrolled, Key: key}, nil
		}
		return nil, fmt.Errorf("storing identity %s: %w", key, err)
	}

	log.Printf("Enrolled identity %s", sanitizeForLog(key))
	return &EnrollResult{Outcome: OutcomeEnrolled, Key: key}, nil
}

// validate returns the missing or invalid fields in a stable order: key,
// image, then required metadata in configured order.
func (e *Enroller) validate(key string, req EnrollRequest, metadata map[string]string) *ValidationError {
	var missing []string
	if key == "" || !e.withinLimit(key) {
		missing = append(missing, "key")
	}
	if req.Image == nil || req.Image.Bounds().Empty() {
		missing = append(missing, "image")
	}
	for _, field := range e.opts.RequiredFields {
		name := NormalizeFieldName(field)
		if v := metadata[name]; v == "" || !e.withinLimit(v) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing}
}

func (e *Enroller) withinLimit(s string) bool {
	return e.opts.MaxFieldLength <= 0 || utf8.RuneCountInString(s) <= e.opts.MaxFieldLength
}

// cleanMetadata normalizes field names, trims values and drops blank and discarded fields.
func (e *Enroller) cleanMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		name := NormalizeFieldName(k)
		if _, drop := e.discarded[name]; drop {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			out[name] = v
		}
	}
	return out
}

// attributes returns the metadata stored next to the descriptor, without the name.
func (e *Enroller) attributes(metadata map[string]string) map[string]string {
	attrs := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if k != e.opts.NameField {
			attrs[k] = v
		}
	}
	return attrs
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
