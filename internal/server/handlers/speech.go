package handlers

import (
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/simplifygenai/chatrelay/internal/encode"
	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
	"go.uber.org/zap"
)

const (
	defaultSpeechVoice = "alloy"
	defaultSpeechModel = "tts-1"
	defaultSpeechSpeed = 1.0

	maxSpeechInputChars = 4096
	minSpeechSpeed      = 0.25
	maxSpeechSpeed      = 4.0

	defaultTranscribeModel = "whisper-1"

	ttsRoute = "/api/tts"
	sttRoute = "/api/stt"
)

// SpeechHandler relays text-to-speech requests and streams the synthesized
// audio back to the caller.
type SpeechHandler struct {
	client  *openai.Client
	enabled bool
}

// NewSpeechHandler creates a text-to-speech handler. The feature gate is
// evaluated inside Handle, after rate-limit admission, so disabled calls
// still consume quota.
func NewSpeechHandler(client *openai.Client, enabled bool) *SpeechHandler {
	return &SpeechHandler{client: client, enabled: enabled}
}

type speechPayload struct {
	Text  string   `json:"text"`
	Voice string   `json:"voice"`
	Model string   `json:"model"`
	Speed *float64 `json:"speed"`
}

// Handle validates and relays a synthesis request.
func (h *SpeechHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !h.enabled {
		metrics.RecordFeatureDenied("tts")
		respondWithError(w, r, apperrors.NewFeatureDisabledError("text-to-speech is disabled"))
		return
	}

	var payload speechPayload
	if envelope := decodeJSONBody(r, &payload); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	if payload.Text == "" {
		respondWithError(w, r, apperrors.NewValidationError("text is required"))
		return
	}
	if utf8.RuneCountInString(payload.Text) > maxSpeechInputChars {
		respondWithError(w, r, apperrors.NewValidationError("text exceeds 4096 characters"))
		return
	}

	speed := defaultSpeechSpeed
	if payload.Speed != nil {
		speed = *payload.Speed
	}
	if speed < minSpeechSpeed || speed > maxSpeechSpeed {
		respondWithError(w, r, apperrors.NewValidationError("speed must be between 0.25 and 4.0"))
		return
	}

	req := &openai.SpeechRequest{
		Model: payload.Model,
		Input: payload.Text,
		Voice: payload.Voice,
		Speed: speed,
	}
	if req.Model == "" {
		req.Model = defaultSpeechModel
	}
	if req.Voice == "" {
		req.Voice = defaultSpeechVoice
	}

	audio, contentType, err := h.client.CreateSpeech(r.Context(), req)
	if err != nil {
		respondWithError(w, r, upstreamFailureEnvelope(err, "speech synthesis"))
		return
	}
	defer audio.Close() // nolint:errcheck // best-effort cleanup

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("audio stream interrupted", zap.Error(err))
	}
	metrics.RecordRelay(ttsRoute, http.StatusOK, time.Since(start))
}

// TranscribeHandler relays speech-to-text requests carrying base64 audio.
type TranscribeHandler struct {
	client  *openai.Client
	enabled bool
}

// NewTranscribeHandler creates a speech-to-text handler. Like synthesis, the
// feature gate runs after rate-limit admission.
func NewTranscribeHandler(client *openai.Client, enabled bool) *TranscribeHandler {
	return &TranscribeHandler{client: client, enabled: enabled}
}

type transcribePayload struct {
	Audio    string `json:"audio"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Handle validates and relays a transcription request.
func (h *TranscribeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !h.enabled {
		metrics.RecordFeatureDenied("stt")
		respondWithError(w, r, apperrors.NewFeatureDisabledError("speech-to-text is disabled"))
		return
	}

	var payload transcribePayload
	if envelope := decodeJSONBody(r, &payload); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	if payload.Audio == "" {
		respondWithError(w, r, apperrors.NewValidationError("audio is required"))
		return
	}

	audio, err := encode.DecodeAudioPayload(payload.Audio)
	if err != nil {
		respondWithError(w, r, apperrors.NewValidationError("audio must be base64 encoded"))
		return
	}

	if payload.Model == "" {
		payload.Model = defaultTranscribeModel
	}

	transcription, err := h.client.Transcribe(r.Context(), &openai.TranscriptionRequest{
		Audio:    audio,
		Model:    payload.Model,
		Language: payload.Language,
	})
	if err != nil {
		respondWithError(w, r, upstreamFailureEnvelope(err, "transcription"))
		return
	}

	respondJSON(w, http.StatusOK, transcribeResponse{Text: transcription.Text})
	metrics.RecordRelay(sttRoute, http.StatusOK, time.Since(start))
}
