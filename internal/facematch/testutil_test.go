package facematch

import (
	"context"
	"image"
	"sync/atomic"
	"time"
)

// fakeExtractor returns a fixed descriptor or error, optionally after a delay.
type fakeExtractor struct {
	descriptor Descriptor
	err        error
	delay      time.Duration
	model      string
	calls      atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, img image.Image) (Descriptor, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.descriptor, nil
}

func (f *fakeExtractor) Model() string {
	return f.model
}

// sequenceExtractor returns errs in order, then the descriptor.
type sequenceExtractor struct {
	errs       []error
	descriptor Descriptor
	calls      atomic.Int32
}

func (s *sequenceExtractor) Extract(ctx context.Context, img image.Image) (Descriptor, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) && s.errs[n] != nil {
		return nil, s.errs[n]
	}
	return s.descriptor, nil
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func fullMetadata() map[string]string {
	return map[string]string{
		"name":    "Jan Novak",
		"dob":     "2001-04-12",
		"address": "Main Street 1",
		"age":     "23",
		"dept":    "CSE",
		"year":    "3",
		"email":   "jan@example.com",
	}
}

var requiredFields = []string{"name", "dob", "address", "age", "dept", "year", "email"}
