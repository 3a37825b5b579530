package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/otp"
)

// OTPHandler issues and verifies one-time codes.
type OTPHandler struct {
	service *otp.Service
	metrics *metrics.Metrics
}

// NewOTPHandler creates a new one-time code handler.
func NewOTPHandler(service *otp.Service, m *metrics.Metrics) *OTPHandler {
	return &OTPHandler{service: service, metrics: m}
}

// IssueRequest is the body of POST /api/v1/otp/issue.
type IssueRequest struct {
	IdentityKey string `json:"identity_key"`
}

// IssueResponse carries a freshly issued code.
type IssueResponse struct {
	IdentityKey string    `json:"identity_key"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// VerifyRequest is the body of POST /api/v1/otp/verify.
type VerifyRequest struct {
	IdentityKey string `json:"identity_key"`
	Code        string `json:"code"`
}

// Issue handles POST /api/v1/otp/issue.
func (h *OTPHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.service.Issue(r.Context(), req.IdentityKey)
	if err != nil {
		respondServiceError(w, h.metrics, "otp_issue", err)
		return
	}
	h.metrics.OTPOutcome("issue", string(result.Outcome))

	if result.Outcome != otp.OutcomeIssued {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, IssueResponse{
		IdentityKey: result.Key,
		Code:        result.Code,
		ExpiresAt:   result.ExpiresAt,
	})
}

// Verify handles POST /api/v1/otp/verify.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	outcome, err := h.service.Verify(r.Context(), req.IdentityKey, req.Code)
	if err != nil {
		respondServiceError(w, h.metrics, "otp_verify", err)
		return
	}
	h.metrics.OTPOutcome("verify", string(outcome))

	if outcome != otp.OutcomeVerified {
		respondError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
}
