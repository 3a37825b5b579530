package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

func seedGallery(env *testEnv) {
	env.store.AddIdentity(database.StoredIdentity{Key: "S001", Name: "First", Descriptor: []float32{0, 0}, ImagePath: "uploads/s001.png"})
	env.store.AddIdentity(database.StoredIdentity{Key: "S002", Name: "Second", Descriptor: []float32{1.2, 0}})
}

func TestRecognize_Matched(t *testing.T) {
	env := newTestEnv(t)
	seedGallery(env)
	env.extractor.descriptor = facematch.Descriptor{0.3, 0}
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, multipartRequest(t, "/api/v1/recognize", nil, pngImage(t)))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]any
	parseJSONResponse(t, recorder, &resp)
	if resp["matched"] != true || resp["identity_key"] != "S001" || resp["name"] != "First" {
		t.Errorf("unexpected response %v", resp)
	}
	if _, ok := resp["image_path"]; ok {
		t.Error("image_path must not be shown to anonymous callers")
	}
	if _, ok := resp["distance"]; ok {
		t.Error("distance must not be shown to anonymous callers")
	}
	if _, ok := resp["threshold"]; ok {
		t.Error("threshold must not be shown to anonymous callers")
	}
}

func TestRecognize_AdminSeesDistance(t *testing.T) {
	env := newTestEnv(t)
	seedGallery(env)
	env.extractor.descriptor = facematch.Descriptor{0.3, 0}
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, asAdmin(multipartRequest(t, "/api/v1/recognize", nil, pngImage(t))))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Distance == nil || *resp.Distance < 0.29 || *resp.Distance > 0.31 {
		t.Errorf("expected distance ~0.3, got %v", resp.Distance)
	}
	if resp.Threshold == nil || *resp.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", resp.Threshold)
	}
	if resp.ImagePath != "uploads/s001.png" {
		t.Errorf("expected image_path for admin, got %q", resp.ImagePath)
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	env := newTestEnv(t)
	seedGallery(env)
	env.extractor.descriptor = facematch.Descriptor{0.6, 5}
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, multipartRequest(t, "/api/v1/recognize", nil, pngImage(t)))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]any
	parseJSONResponse(t, recorder, &resp)
	if resp["matched"] != false {
		t.Errorf("expected matched=false, got %v", resp)
	}
	if len(resp) != 1 {
		t.Errorf("no-match response should only carry matched, got %v", resp)
	}
}

func TestRecognize_NoFace(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = facematch.ErrNoFaceDetected
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, multipartRequest(t, "/api/v1/recognize", nil, pngImage(t)))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "no face detected")
}

func TestRecognize_MissingImage(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, multipartRequest(t, "/api/v1/recognize", map[string]string{"x": "y"}, nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "image is required")
}

func TestRecognize_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.store.ListError = database.ErrStoreUnavailable
	handler := NewRecognizeHandler(env.matcher, env.metrics)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, multipartRequest(t, "/api/v1/recognize", nil, pngImage(t)))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}
