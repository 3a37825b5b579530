//go:build dlib

package fingerprint

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/facematch"
)

// DlibAvailable reports whether the binary was built with dlib support.
const DlibAvailable = true

// DlibExtractor computes 128-dimensional descriptors in process with dlib.
// The recognizer is not safe for concurrent use, so calls are serialized.
type DlibExtractor struct {
	mu  sync.Mutex
	rec *face.Recognizer
	cnn bool
}

// NewDlibExtractor loads the dlib models from modelsDir.
func NewDlibExtractor(modelsDir string, cnn bool) (*DlibExtractor, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	return &DlibExtractor{rec: rec, cnn: cnn}, nil
}

// Model returns the dlib model name.
func (d *DlibExtractor) Model() string {
	return "dlib_face_recognition_resnet_model_v1"
}

// Extract implements facematch.Extractor. The dlib call does not observe ctx;
// callers bound it with facematch.ResilientExtractor.
func (d *DlibExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := EncodeJPEG(img, constants.MaxImageSize, constants.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", facematch.ErrExtractionFailed, err)
	}

	d.mu.Lock()
	if d.rec == nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: recognizer closed", facematch.ErrExtractionFailed)
	}
	var faces []face.Face
	if d.cnn {
		faces, err = d.rec.RecognizeCNN(data)
	} else {
		faces, err = d.rec.Recognize(data)
	}
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", facematch.ErrExtractionFailed, err)
	}

	dets := make([]facematch.Detection, 0, len(faces))
	for i, f := range faces {
		r := f.Rectangle
		desc := make(facematch.Descriptor, len(f.Descriptor))
		copy(desc, f.Descriptor[:])
		dets = append(dets, facematch.Detection{
			Index:      i,
			BBox:       []float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)},
			Score:      1,
			Descriptor: desc,
		})
	}
	primary, ok := facematch.SelectPrimary(dets)
	if !ok {
		return nil, facematch.ErrNoFaceDetected
	}
	return primary.Descriptor, nil
}

// Close releases the dlib models.
func (d *DlibExtractor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}
