package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
)

// IdentitiesHandler exposes enrolled identity metadata. Descriptors are never returned.
type IdentitiesHandler struct {
	store   database.IdentityWriter
	metrics *metrics.Metrics
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(store database.IdentityWriter, m *metrics.Metrics) *IdentitiesHandler {
	return &IdentitiesHandler{store: store, metrics: m}
}

// IdentityListResponse is a page of identities.
type IdentityListResponse struct {
	Identities []database.IdentitySummary `json:"identities"`
	Total      int                        `json:"total"`
	Offset     int                        `json:"offset"`
	Limit      int                        `json:"limit"`
}

func queryInt(r *http.Request, name string, defaultVal int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultVal
}

// List handles GET /api/v1/identities?offset=&limit=.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", constants.DefaultIdentityPageSize)
	if limit == 0 || limit > constants.DefaultIdentityPageSize*10 {
		limit = constants.DefaultIdentityPageSize
	}

	identities, err := h.store.ListAll(r.Context())
	if err != nil {
		respondServiceError(w, h.metrics, "list_identities", err)
		return
	}

	resp := IdentityListResponse{
		Identities: []database.IdentitySummary{},
		Total:      len(identities),
		Offset:     offset,
		Limit:      limit,
	}
	if offset < len(identities) {
		end := min(offset+limit, len(identities))
		for i := offset; i < end; i++ {
			resp.Identities = append(resp.Identities, identities[i].Summary())
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/identities/{key}.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := facematch.NormalizeKey(chi.URLParam(r, "key"))
	if key == "" {
		respondError(w, http.StatusBadRequest, "key is required")
		return
	}

	identity, err := h.store.FindByKey(r.Context(), key)
	if err != nil {
		respondServiceError(w, h.metrics, "get_identity", err)
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, identity.Summary())
}

// Delete handles DELETE /api/v1/identities/{key}.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := facematch.NormalizeKey(chi.URLParam(r, "key"))
	if key == "" {
		respondError(w, http.StatusBadRequest, "key is required")
		return
	}

	deleted, err := h.store.Delete(r.Context(), key)
	if err != nil {
		respondServiceError(w, h.metrics, "delete_identity", err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	log.Printf("Deleted identity %s", sanitizeForLog(key))
	w.WriteHeader(http.StatusNoContent)
}
