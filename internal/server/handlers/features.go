package handlers

import "net/http"

// FeatureSet is the optional-capability matrix advertised to clients so the
// frontend can hide controls for disabled features.
type FeatureSet struct {
	TTS bool `json:"tts"`
	STT bool `json:"stt"`
}

// FeaturesHandler reports which optional features this deployment enables.
// The endpoint is intentionally unauthenticated and unmetered: clients call
// it before any credential exists.
func FeaturesHandler(features FeatureSet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, features)
	}
}
