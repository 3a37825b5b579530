package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facegate/internal/database"
)

func TestIdentities_List(t *testing.T) {
	env := newTestEnv(t)
	for _, key := range []string{"S003", "S001", "S002"} {
		env.store.AddIdentity(database.StoredIdentity{Key: key, Name: key, Descriptor: []float32{0.5, 0.25}})
	}
	handler := NewIdentitiesHandler(env.store, env.metrics)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities?offset=1&limit=1", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp IdentityListResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Total != 3 || len(resp.Identities) != 1 || resp.Identities[0].Key != "S002" {
		t.Errorf("unexpected page %+v", resp)
	}
	if strings.Contains(recorder.Body.String(), "descriptor") || strings.Contains(recorder.Body.String(), "0.25") {
		t.Error("descriptors must never be returned")
	}
}

func TestIdentities_ListPastEnd(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.StoredIdentity{Key: "S001", Descriptor: []float32{0}})
	handler := NewIdentitiesHandler(env.store, env.metrics)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities?offset=10", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp IdentityListResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Identities == nil || len(resp.Identities) != 0 {
		t.Errorf("expected empty list, got %+v", resp.Identities)
	}
}

func TestIdentities_Get(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.StoredIdentity{Key: "S001", Name: "First", Descriptor: []float32{0}})
	handler := NewIdentitiesHandler(env.store, env.metrics)

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"found", "S001", http.StatusOK},
		{"found case-insensitive", "s001", http.StatusOK},
		{"not found", "S999", http.StatusNotFound},
		{"blank", " ", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/identities/x", nil), map[string]string{"key": tt.key})
			recorder := httptest.NewRecorder()
			handler.Get(recorder, req)
			assertStatusCode(t, recorder, tt.wantStatus)
		})
	}
}

func TestIdentities_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.StoredIdentity{Key: "S001", Descriptor: []float32{0}})
	handler := NewIdentitiesHandler(env.store, env.metrics)

	req := requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/identities/S001", nil), map[string]string{"key": "S001"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNoContent)
	if env.store.HasKey("S001") {
		t.Error("identity should be deleted")
	}

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
