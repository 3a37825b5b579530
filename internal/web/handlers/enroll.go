package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

// EnrollHandler handles enrollment requests.
type EnrollHandler struct {
	enroller  *facematch.Enroller
	cfg       config.EnrollmentConfig
	uploadDir string
	metrics   *metrics.Metrics
}

// NewEnrollHandler creates a new enroll handler.
func NewEnrollHandler(cfg *config.Config, enroller *facematch.Enroller, m *metrics.Metrics) *EnrollHandler {
	return &EnrollHandler{
		enroller:  enroller,
		cfg:       cfg.Enrollment,
		uploadDir: cfg.Web.UploadDir,
		metrics:   m,
	}
}

// EnrollResponse is the body of an enroll response.
type EnrollResponse struct {
	Outcome     string   `json:"outcome"`
	IdentityKey string   `json:"identity_key,omitempty"`
	Missing     []string `json:"missing,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Enroll handles POST /api/v1/enroll with a multipart photo and metadata fields.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	img, data, err := readImage(r)
	if err != nil && !errors.Is(err, errNoImage) {
		respondError(w, http.StatusBadRequest, "invalid image")
		return
	}

	key, metadata := h.formFields(r)

	var imagePath string
	if img != nil && h.uploadDir != "" {
		imagePath, err = saveImage(h.uploadDir, data)
		if err != nil {
			log.Printf("Failed to save enrollment photo: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to save image")
			return
		}
	}

	result, err := h.enroller.Enroll(r.Context(), facematch.EnrollRequest{
		Key:       key,
		Image:     img,
		Metadata:  metadata,
		ImagePath: imagePath,
	})
	if imagePath != "" && (err != nil || result.Outcome != facematch.OutcomeEnrolled) {
		removeImage(imagePath)
	}
	if err != nil {
		respondServiceError(w, h.metrics, "enroll", err)
		return
	}
	h.metrics.EnrollOutcome(result.Outcome)

	resp := EnrollResponse{Outcome: string(result.Outcome), IdentityKey: result.Key}
	switch result.Outcome {
	case facematch.OutcomeEnrolled:
		respondJSON(w, http.StatusCreated, resp)
	case facematch.OutcomeAlreadyEnrolled:
		resp.Error = "identity already enrolled"
		respondJSON(w, http.StatusConflict, resp)
	case facematch.OutcomeEnrollNoFace:
		resp.Error = "no face detected"
		respondJSON(w, http.StatusUnprocessableEntity, resp)
	case facematch.OutcomeValidationFailed:
		resp.Error = "missing required fields"
		resp.Missing = result.Missing
		respondJSON(w, http.StatusBadRequest, resp)
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// formFields splits the form into the identity key and the remaining metadata.
func (h *EnrollHandler) formFields(r *http.Request) (string, map[string]string) {
	primary := facematch.NormalizeFieldName(h.cfg.KeyField)
	keyNames := map[string]struct{}{primary: {}}
	for _, alias := range h.cfg.KeyAliases {
		keyNames[facematch.NormalizeFieldName(alias)] = struct{}{}
	}

	var key string
	metadata := make(map[string]string)
	if r.MultipartForm == nil {
		return key, metadata
	}
	for name, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		norm := facematch.NormalizeFieldName(name)
		if h.cfg.IsDiscardedField(norm) {
			continue
		}
		if _, isKey := keyNames[norm]; isKey {
			// the primary field wins over aliases
			if key == "" || norm == primary {
				key = values[0]
			}
			continue
		}
		metadata[name] = values[0]
	}
	return key, metadata
}

// imageExtensions maps sniffed content types to file extensions.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// saveImage writes data under dir with a random name and returns the path.
func saveImage(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		ext = ".img"
	}
	path := filepath.Join(dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func removeImage(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", sanitizeForLog(path), err)
	}
}
