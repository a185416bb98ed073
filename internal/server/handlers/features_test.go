package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFeaturesHandlerReportsFlags(t *testing.T) {
	handler := FeaturesHandler(FeatureSet{TTS: true, STT: false})

	req := httptest.NewRequest(http.MethodGet, "/api/features", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var features FeatureSet
	if err := json.NewDecoder(rec.Body).Decode(&features); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !features.TTS || features.STT {
		t.Fatalf("expected tts=true stt=false, got %+v", features)
	}
}
