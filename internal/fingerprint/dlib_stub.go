//go:build !dlib

package fingerprint

import (
	"context"
	"errors"
	"image"

	"github.com/kozaktomas/facegate/internal/facematch"
)

// DlibAvailable reports whether the binary was built with dlib support.
const DlibAvailable = false

// ErrDlibUnavailable is returned when the binary was built without the dlib tag.
var ErrDlibUnavailable = errors.New("dlib backend not compiled in, rebuild with -tags dlib")

// DlibExtractor is unavailable in this build.
type DlibExtractor struct{}

// NewDlibExtractor always fails without the dlib build tag.
func NewDlibExtractor(modelsDir string, cnn bool) (*DlibExtractor, error) {
	return nil, ErrDlibUnavailable
}

func (d *DlibExtractor) Model() string { return "" }

func (d *DlibExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	return nil, ErrDlibUnavailable
}

func (d *DlibExtractor) Close() error { return nil }
