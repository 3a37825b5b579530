package facematch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastResilient(next Extractor, timeout time.Duration, retries int) *ResilientExtractor {
	r := NewResilientExtractor(next, timeout, retries)
	r.initialInterval = time.Millisecond
	return r
}

func TestResilientExtractor_Success(t *testing.T) {
	inner := &fakeExtractor{descriptor: Descriptor{1, 2}, model: "arcface"}
	r := fastResilient(inner, time.Second, 2)

	desc, err := r.Extract(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, Descriptor{1, 2}, desc)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "arcface", r.Model())
}

func TestResilientExtractor_TimeoutRetriedThenFails(t *testing.T) {
	inner := &fakeExtractor{descriptor: Descriptor{1}, delay: 200 * time.Millisecond}
	r := fastResilient(inner, 10*time.Millisecond, 2)

	_, err := r.Extract(context.Background(), testImage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionTimeout), "got %v", err)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestResilientExtractor_TimeoutThenSuccess(t *testing.T) {
	inner := &sequenceExtractor{
		errs:       []error{context.DeadlineExceeded},
		descriptor: Descriptor{0.5},
	}
	r := fastResilient(inner, time.Second, 1)

	desc, err := r.Extract(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, Descriptor{0.5}, desc)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestResilientExtractor_PermanentErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErrIs error
	}{
		{"no face", ErrNoFaceDetected, ErrNoFaceDetected},
		{"provider failure", errors.New("connection refused"), ErrExtractionFailed},
		{"already classified", ErrExtractionFailed, ErrExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &fakeExtractor{err: tt.err}
			r := fastResilient(inner, time.Second, 3)

			_, err := r.Extract(context.Background(), testImage())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
			assert.Equal(t, int32(1), inner.calls.Load(), "permanent errors are not retried")
		})
	}
}

func TestResilientExtractor_CallerCancel(t *testing.T) {
	inner := &fakeExtractor{descriptor: Descriptor{1}, delay: time.Second}
	r := fastResilient(inner, 5*time.Second, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Extract(ctx, testImage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestResilientExtractor_CallerDeadlineDuringBackoff(t *testing.T) {
	inner := &fakeExtractor{descriptor: Descriptor{1}, delay: time.Second}
	r := NewResilientExtractor(inner, 30*time.Millisecond, 3)

	// Expires after the first attempt, while waiting for the second.
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_, err := r.Extract(ctx, testImage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionTimeout), "got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Equal(t, int32(1), inner.calls.Load())
}
