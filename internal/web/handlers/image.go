package handlers

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/fingerprint"
)

// errNoImage means the multipart form has no image part.
var errNoImage = errors.New("image is required")

// imageFields are the accepted multipart names for the photo.
var imageFields = []string{"image", "file", "photo"}

// parseUpload parses a size-limited multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		return fmt.Errorf("failed to parse multipart form: %w", err)
	}
	return nil
}

// readImage returns the decoded image and its raw bytes from a parsed form.
func readImage(r *http.Request) (image.Image, []byte, error) {
	for _, field := range imageFields {
		file, _, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		img, _, err := fingerprint.DecodeImage(data)
		if err != nil {
			return nil, nil, err
		}
		return img, data, nil
	}
	return nil, nil, errNoImage
}
