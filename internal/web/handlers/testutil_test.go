package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database/mock"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

// stubExtractor returns a fixed descriptor or error
type stubExtractor struct {
	descriptor facematch.Descriptor
	err        error
	calls      int
}

func (s *stubExtractor) Extract(ctx context.Context, img image.Image) (facematch.Descriptor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.descriptor, nil
}

// testConfig creates a minimal config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Enrollment: config.EnrollmentConfig{
			KeyField:        "key",
			KeyAliases:      []string{"registernum"},
			NameField:       "name",
			RequiredFields:  []string{"name", "email"},
			DiscardedFields: []string{"password"},
			MaxFieldLength:  256,
		},
		Web: config.WebConfig{
			UploadDir: t.TempDir(),
		},
	}
}

// testEnv bundles a mock store, a stub extractor and the services built on them
type testEnv struct {
	cfg       *config.Config
	store     *mock.MockIdentityStore
	extractor *stubExtractor
	metrics   *metrics.Metrics
	enroller  *facematch.Enroller
	matcher   *facematch.Matcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	store := mock.NewMockIdentityStore()
	extractor := &stubExtractor{descriptor: facematch.Descriptor{0, 0}}
	return &testEnv{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		metrics:   metrics.New(),
		enroller: facematch.NewEnroller(extractor, store, facematch.EnrollerOptions{
			RequiredFields:  cfg.Enrollment.RequiredFields,
			NameField:       cfg.Enrollment.NameField,
			DiscardedFields: cfg.Enrollment.DiscardedFields,
			MaxFieldLength:  cfg.Enrollment.MaxFieldLength,
		}),
		matcher: facematch.NewMatcher(extractor, facematch.NewScanSearcher(store), 0.6),
	}
}

// pngImage returns a small encoded PNG
func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with form fields and an optional image part
func multipartRequest(t *testing.T, path string, fields map[string]string, imageData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if imageData != nil {
		part, err := writer.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(imageData)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// asAdmin marks the request as coming from an admin caller
func asAdmin(r *http.Request) *http.Request {
	return r.WithContext(middleware.SetAdminInContext(r.Context(), true))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
