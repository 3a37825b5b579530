// Package otp issues and verifies single-use numeric codes bound to enrolled identities.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/ttlstore"
)

const keyPrefix = "otp:"

// IssueOutcome is the result category of Service.Issue.
type IssueOutcome string

const (
	OutcomeIssued          IssueOutcome = "issued"
	OutcomeUnknownIdentity IssueOutcome = "unknown_identity"
)

// VerifyOutcome is the result category of Service.Verify.
type VerifyOutcome string

const (
	OutcomeVerified VerifyOutcome = "verified"
	OutcomeRejected VerifyOutcome = "rejected"
)

// IssueResult describes an issued code. Code is empty unless Outcome is OutcomeIssued.
type IssueResult struct {
	Outcome   IssueOutcome
	Key       string
	Code      string
	ExpiresAt time.Time
}

// Service binds one-time codes to identity keys.
type Service struct {
	codes      ttlstore.Store
	identities database.IdentityReader
	ttl        time.Duration
	digits     int
	now        func() time.Time
}

// NewService creates a code service. A non-positive ttl selects constants.DefaultOTPTTL.
func NewService(codes ttlstore.Store, identities database.IdentityReader, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = constants.DefaultOTPTTL
	}
	return &Service{
		codes:      codes,
		identities: identities,
		ttl:        ttl,
		digits:     constants.OTPDigits,
		now:        time.Now,
	}
}

// TTL returns how long issued codes stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh code for an enrolled identity, replacing any
// outstanding one.
func (s *Service) Issue(ctx context.Context, key string) (*IssueResult, error) {
	key = facematch.NormalizeKey(key)
	if key == "" {
		return &IssueResult{Outcome: OutcomeUnknownIdentity}, nil
	}

	identity, err := s.identities.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up identity %s: %w", key, err)
	}
	if identity == nil {
		return &IssueResult{Outcome: OutcomeUnknownIdentity, Key: key}, nil
	}

	code, err := generateCode(s.digits)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Set(ctx, keyPrefix+key, code, s.ttl); err != nil {
		return nil, fmt.Errorf("storing code for %s: %w", key, err)
	}

	log.Printf("Issued one-time code for %s, valid %v", key, s.ttl)
	return &IssueResult{
		Outcome:   OutcomeIssued,
		Key:       key,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// Verify checks code against the outstanding code for key. The outstanding
// code is consumed by the attempt whether or not it matches.
func (s *Service) Verify(ctx context.Context, key, code string) (VerifyOutcome, error) {
	key = facematch.NormalizeKey(key)
	code = strings.TrimSpace(code)
	if key == "" || code == "" {
		return OutcomeRejected, nil
	}

	stored, ok, err := s.codes.Take(ctx, keyPrefix+key)
	if err != nil {
		return "", fmt.Errorf("loading code for %s: %w", key, err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return OutcomeRejected, nil
	}
	return OutcomeVerified, nil
}

// generateCode returns a zero-padded random decimal code.
func generateCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
