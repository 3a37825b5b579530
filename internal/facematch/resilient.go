package facematch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kozaktomas/facegate/internal/constants"
)

// ResilientExtractor bounds every call to the wrapped extractor with a
// timeout and retries timed out attempts with exponential backoff.
// No-face results and other failures are final.
type ResilientExtractor struct {
	next            Extractor
	timeout         time.Duration
	retries         int
	initialInterval time.Duration
}

// NewResilientExtractor wraps next. retries is the number of extra attempts
// after a timeout.
func NewResilientExtractor(next Extractor, timeout time.Duration, retries int) *ResilientExtractor {
	if timeout <= 0 {
		timeout = constants.DefaultExtractionTimeout
	}
	return &ResilientExtractor{
		next:            next,
		timeout:         timeout,
		retries:         max(retries, 0),
		initialInterval: 200 * time.Millisecond,
	}
}

// Model forwards to the wrapped extractor when it knows its model.
func (r *ResilientExtractor) Model() string {
	if namer, ok := r.next.(ModelNamer); ok {
		return namer.Model()
	}
	return ""
}

type extractResult struct {
	descriptor Descriptor
	err        error
}

// attempt runs one extraction under its own deadline. The extractor may
// ignore the context; the select still returns on time.
func (r *ResilientExtractor) attempt(ctx context.Context, img image.Image) (Descriptor, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan extractResult, 1)
	go func() {
		d, err := r.next.Extract(attemptCtx, img)
		ch <- extractResult{descriptor: d, err: err}
	}()

	select {
	case res := <-ch:
		return res.descriptor, res.err
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	}
}

// Extract implements Extractor.
func (r *ResilientExtractor) Extract(ctx context.Context, img image.Image) (Descriptor, error) {
	var descriptor Descriptor
	attempts := 0

	op := func() error {
		attempts++
		d, err := r.attempt(ctx, img)

		switch {
		case err == nil:
			descriptor = d
			return nil
		case ctx.Err() != nil:
			// The caller's deadline, not ours.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return backoff.Permanent(fmt.Errorf("%w: %w", ErrExtractionTimeout, ctx.Err()))
			}
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, ErrNoFaceDetected):
			return backoff.Permanent(err)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrExtractionTimeout):
			log.Printf("Face extraction attempt %d timed out after %v", attempts, r.timeout)
			return fmt.Errorf("%w after %v", ErrExtractionTimeout, r.timeout)
		case errors.Is(err, ErrExtractionFailed):
			return backoff.Permanent(err)
		default:
			return backoff.Permanent(fmt.Errorf("%w: %w", ErrExtractionFailed, err))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.retries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		// The caller's deadline can also expire while waiting between attempts.
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrExtractionTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrExtractionTimeout, err)
		}
		return nil, err
	}
	return descriptor, nil
}
