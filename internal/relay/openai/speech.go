package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// SpeechRequest carries a text-to-speech call.
type SpeechRequest struct {
	Model string
	Input string
	Voice string
	Speed float64
}

type speechPayload struct {
	Model string  `json:"model"`
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// CreateSpeech synthesizes audio from text. It returns the provider's audio
// byte stream and its content type; the caller owns the stream and must close
// it. The body is never buffered so large clips relay in constant memory.
func (c *Client) CreateSpeech(ctx context.Context, req *SpeechRequest) (io.ReadCloser, string, error) {
	if err := c.checkReady(); err != nil {
		return nil, "", err
	}
	if req == nil || strings.TrimSpace(req.Input) == "" {
		return nil, "", fmt.Errorf("input text is required")
	}

	body, err := json.Marshal(speechPayload{
		Model: req.Model,
		Input: req.Input,
		Voice: req.Voice,
		Speed: req.Speed,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/speech"), bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return resp.Body, contentType, nil
}

// TranscriptionRequest carries a speech-to-text call. Audio holds the decoded
// recording bytes.
type TranscriptionRequest struct {
	Audio    []byte
	Model    string
	Language string
}

// Transcription is the provider's speech-to-text result.
type Transcription struct {
	Text string `json:"text"`
}

// Transcribe uploads the recording as multipart/form-data and returns the
// recognized text. Language "auto" (or empty) lets the provider detect it.
func (c *Client) Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcription, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	if req == nil || len(req.Audio) == 0 {
		return nil, fmt.Errorf("audio data is required")
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", "audio.webm")
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := form.WriteField("model", req.Model); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if req.Language != "" && req.Language != "auto" {
		if err := form.WriteField("language", req.Language); err != nil {
			return nil, fmt.Errorf("build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/transcriptions"), &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed Transcription
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &parsed, nil
}
