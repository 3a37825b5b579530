package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

// RecognizeHandler handles recognition requests.
type RecognizeHandler struct {
	matcher *facematch.Matcher
	metrics *metrics.Metrics
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(matcher *facematch.Matcher, m *metrics.Metrics) *RecognizeHandler {
	return &RecognizeHandler{matcher: matcher, metrics: m}
}

// RecognizeResponse is the body of a recognize response. ImagePath,
// Distance and Threshold are only filled in for admin callers.
type RecognizeResponse struct {
	Matched     bool     `json:"matched"`
	IdentityKey string   `json:"identity_key,omitempty"`
	Name        string   `json:"name,omitempty"`
	ImagePath   string   `json:"image_path,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Candidates  *int     `json:"candidates,omitempty"`
}

// Recognize handles POST /api/v1/recognize. The probe photo is never stored.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	img, _, err := readImage(r)
	if errors.Is(err, errNoImage) {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image")
		return
	}

	result, err := h.matcher.Recognize(r.Context(), img)
	if err != nil {
		respondServiceError(w, h.metrics, "recognize", err)
		return
	}
	h.metrics.RecognizeOutcome(result.Outcome)

	if result.Outcome == facematch.OutcomeMatchNoFace {
		respondError(w, http.StatusUnprocessableEntity, "no face detected")
		return
	}

	resp := RecognizeResponse{Matched: result.Outcome == facematch.OutcomeMatched}
	if resp.Matched {
		resp.IdentityKey = result.IdentityKey
		resp.Name = result.Name
	}
	if middleware.IsAdmin(r.Context()) {
		resp.Threshold = &result.Threshold
		resp.Candidates = &result.Candidates
		if resp.Matched {
			resp.ImagePath = result.ImagePath
			resp.Distance = &result.Distance
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
