package metrics

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return facematch.Descriptor{1, 2}, nil
}

func TestOutcomeCounters(t *testing.T) {
	m := New()

	m.EnrollOutcome(facematch.OutcomeEnrolled)
	m.EnrollOutcome(facematch.OutcomeEnrolled)
	m.EnrollOutcome(facematch.OutcomeAlreadyEnrolled)
	m.RecognizeOutcome(facematch.OutcomeNoMatch)
	m.OTPOutcome("verify", "rejected")

	if got := testutil.ToFloat64(m.enrollments.WithLabelValues("enrolled")); got != 2 {
		t.Errorf("enrolled count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.enrollments.WithLabelValues("already_enrolled")); got != 1 {
		t.Errorf("already_enrolled count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recognitions.WithLabelValues("no_match")); got != 1 {
		t.Errorf("no_match count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.otp.WithLabelValues("verify", "rejected")); got != 1 {
		t.Errorf("otp count = %v, want 1", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "none"},
		{fmt.Errorf("wrap: %w", facematch.ErrExtractionTimeout), "extraction_timeout"},
		{context.DeadlineExceeded, "extraction_timeout"},
		{fmt.Errorf("wrap: %w", facematch.ErrExtractionFailed), "extraction_failed"},
		{fmt.Errorf("wrap: %w", database.ErrStoreUnavailable), "store_unavailable"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.expected {
				t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestInstrumentedExtractor(t *testing.T) {
	m := New()

	_, _ = m.InstrumentExtractor(stubExtractor{}).Extract(context.Background(), nil)
	_, err := m.InstrumentExtractor(stubExtractor{err: facematch.ErrNoFaceDetected}).Extract(context.Background(), nil)
	if !errors.Is(err, facematch.ErrNoFaceDetected) {
		t.Fatalf("error not passed through: %v", err)
	}

	if n := testutil.CollectAndCount(m.extractionLatency); n != 2 {
		t.Errorf("expected 2 histogram series, got %d", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetIdentities(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "facegate_enrolled_identities 3") {
		t.Errorf("metrics output missing gauge:\n%s", body)
	}
}
