package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

func validFields() map[string]string {
	return map[string]string{
		"key":      "s001",
		"name":     "Jan Novak",
		"email":    "jan@example.com",
		"dept":     "CSE",
		"password": "hunter2",
	}
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestEnroll_Created(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", validFields(), pngImage(t)))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp EnrollResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Outcome != "enrolled" || resp.IdentityKey != "S001" {
		t.Errorf("unexpected response %+v", resp)
	}

	stored, _ := env.store.FindByKey(context.Background(), "S001")
	if stored == nil {
		t.Fatal("identity not stored")
	}
	if stored.Name != "Jan Novak" || stored.Attributes["dept"] != "CSE" {
		t.Errorf("unexpected stored identity %+v", stored)
	}
	if _, ok := stored.Attributes["password"]; ok {
		t.Error("password must not be stored")
	}
	if filepath.Dir(stored.ImagePath) != env.cfg.Web.UploadDir {
		t.Errorf("image path %q not under upload dir", stored.ImagePath)
	}
	if files := uploadedFiles(t, env.cfg.Web.UploadDir); len(files) != 1 || filepath.Ext(files[0]) != ".png" {
		t.Errorf("expected one saved .png, got %v", files)
	}
}

func TestEnroll_KeyAlias(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	fields := validFields()
	delete(fields, "key")
	fields["RegisterNum"] = "r-42"

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", fields, pngImage(t)))

	assertStatusCode(t, recorder, http.StatusCreated)
	if !env.store.HasKey("R-42") {
		t.Errorf("expected alias key to be used, have %v", env.store.Keys())
	}
}

func TestEnroll_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", map[string]string{"name": "Jan"}, nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	var resp EnrollResponse
	parseJSONResponse(t, recorder, &resp)
	for _, want := range []string{"key", "image", "email"} {
		if !slices.Contains(resp.Missing, want) {
			t.Errorf("missing list %v lacks %q", resp.Missing, want)
		}
	}
	if env.extractor.calls != 0 {
		t.Error("extractor must not run on invalid input")
	}
}

func TestEnroll_AlreadyEnrolled(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.StoredIdentity{Key: "S001", Name: "Existing", Descriptor: []float32{1, 1}})
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", validFields(), pngImage(t)))

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "identity already enrolled")
	if env.extractor.calls != 0 {
		t.Error("extractor must not run for an enrolled key")
	}
	if files := uploadedFiles(t, env.cfg.Web.UploadDir); len(files) != 0 {
		t.Errorf("photo of a rejected enrollment should be removed, found %v", files)
	}
}

func TestEnroll_NoFace(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = facematch.ErrNoFaceDetected
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", validFields(), pngImage(t)))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "no face detected")
}

func TestEnroll_InfrastructureErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(env *testEnv)
		wantStatus int
	}{
		{
			name:       "store unavailable",
			setup:      func(env *testEnv) { env.store.FindError = database.ErrStoreUnavailable },
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "extraction timeout",
			setup:      func(env *testEnv) { env.extractor.err = facematch.ErrExtractionTimeout },
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "provider failure",
			setup:      func(env *testEnv) { env.extractor.err = facematch.ErrExtractionFailed },
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)
			handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

			recorder := httptest.NewRecorder()
			handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", validFields(), pngImage(t)))

			assertStatusCode(t, recorder, tt.wantStatus)
			if files := uploadedFiles(t, env.cfg.Web.UploadDir); len(files) != 0 {
				t.Errorf("photo should be removed on failure, found %v", files)
			}
		})
	}
}

func TestEnroll_InvalidImage(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, multipartRequest(t, "/api/v1/enroll", validFields(), []byte("not an image")))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid image")
}

func TestEnroll_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEnrollHandler(env.cfg, env.enroller, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/enroll", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
