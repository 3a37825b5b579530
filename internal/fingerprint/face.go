package fingerprint

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/facematch"
)

// FaceExtractor computes the primary face descriptor through the embedding server.
type FaceExtractor struct {
	client *EmbeddingClient
	dim    int
}

// NewFaceExtractor creates an extractor expecting dim-length descriptors.
// dim 0 accepts whatever the server returns.
func NewFaceExtractor(client *EmbeddingClient, dim int) *FaceExtractor {
	return &FaceExtractor{client: client, dim: dim}
}

// Model returns the embedding model name.
func (f *FaceExtractor) Model() string {
	return f.client.Model()
}

// Extract implements facematch.Extractor.
func (f *FaceExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	data, err := EncodeJPEG(img, constants.MaxImageSize, constants.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", facematch.ErrExtractionFailed, err)
	}

	resp, err := f.client.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, err
	}

	primary, ok := SelectFace(resp)
	if !ok {
		return nil, facematch.ErrNoFaceDetected
	}
	if f.dim > 0 && len(primary.Descriptor) != f.dim {
		return nil, fmt.Errorf("%w: server returned %d-dimensional descriptor, want %d",
			facematch.ErrExtractionFailed, len(primary.Descriptor), f.dim)
	}
	return primary.Descriptor, nil
}

// SelectFace picks the primary face from a server response.
func SelectFace(resp *FaceResponse) (facematch.Detection, bool) {
	if resp == nil {
		return facematch.Detection{}, false
	}
	dets := make([]facematch.Detection, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		dets = append(dets, facematch.Detection{
			Index:      face.FaceIndex,
			BBox:       face.BBox,
			Score:      face.DetScore,
			Descriptor: face.Embedding,
		})
	}
	return facematch.SelectPrimary(dets)
}
