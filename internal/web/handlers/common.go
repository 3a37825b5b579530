package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service errors to an HTTP status and a client-safe message.
func statusForError(err error) (int, string) {
	var verr *facematch.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "identity store unavailable"
	case errors.Is(err, facematch.ErrExtractionTimeout):
		return http.StatusGatewayTimeout, "face extraction timed out"
	case errors.Is(err, facematch.ErrExtractionFailed):
		return http.StatusBadGateway, "face extraction failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondServiceError logs err, counts it and writes the mapped status.
func respondServiceError(w http.ResponseWriter, m *metrics.Metrics, op string, err error) {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s failed: %v", op, err)
		m.Error(op, err)
	}
	respondError(w, status, message)
}

// HealthHandler reports service health.
type HealthHandler struct {
	store   database.IdentityReader
	metrics *metrics.Metrics
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store database.IdentityReader, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{store: store, metrics: m}
}

// Check handles the health check endpoint. It counts identities so that an
// unreachable store reports 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("Health check failed: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}
	h.metrics.SetIdentities(count)
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
