package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simplifygenai/chatrelay/internal/relay"
)

func userMessage(text string) json.RawMessage {
	quoted, _ := json.Marshal(text)
	return json.RawMessage(`{"role":"user","content":` + string(quoted) + `}`)
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.CreateChatCompletion(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []json.RawMessage{userMessage("hi")}})
	require.ErrorIs(t, err, relay.ErrMissingAPIKey)

	_, err = client.StreamChatCompletion(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []json.RawMessage{userMessage("hi")}})
	require.ErrorIs(t, err, relay.ErrMissingAPIKey)

	_, err = client.ListModels(context.Background())
	require.ErrorIs(t, err, relay.ErrMissingAPIKey)

	_, _, err = client.CreateSpeech(context.Background(), &SpeechRequest{Model: "tts-1", Input: "hello", Voice: "alloy", Speed: 1.0})
	require.ErrorIs(t, err, relay.ErrMissingAPIKey)

	_, err = client.Transcribe(context.Background(), &TranscriptionRequest{Audio: []byte{1}, Model: "whisper-1"})
	require.ErrorIs(t, err, relay.ErrMissingAPIKey)
}

func TestCreateChatCompletionForwardsVerbatim(t *testing.T) {
	upstream := `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":3},"extra_field":42}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "gpt-4o", payload["model"])
		require.Equal(t, false, payload["stream"])
		require.InDelta(t, 0.7, payload["temperature"], 0.001)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstream))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	temp := 0.7
	doc, err := client.CreateChatCompletion(context.Background(), &ChatRequest{
		Model:       "gpt-4o",
		Messages:    []json.RawMessage{userMessage("hi")},
		Temperature: &temp,
	})
	require.NoError(t, err)
	// The provider document passes through untouched, unknown fields included.
	require.JSONEq(t, upstream, string(doc))
}

func TestCreateChatCompletionRequiresMessages(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-key")
	_, err := client.CreateChatCompletion(context.Background(), &ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "messages")
}

func TestCreateChatCompletionMapsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.CreateChatCompletion(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []json.RawMessage{userMessage("hi")}})
	require.Error(t, err)

	var perr *relay.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, "rate limit reached", perr.Message)
	require.True(t, perr.Parseable())
}

func TestStreamChatCompletionReturnsChunksInOrder(t *testing.T) {
	chunks := []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"he\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\n",
		"data: [DONE]\n\n",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, true, payload["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	stream, err := client.StreamChatCompletion(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []json.RawMessage{userMessage("hi")}})
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, strings.Join(chunks, ""), string(got))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o","object":"model","owned_by":"openai"},{"id":"whisper-1","object":"model","owned_by":"openai"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	require.Equal(t, "gpt-4o", models[0].ID)
}

func TestCreateSpeechStreamsAudio(t *testing.T) {
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 0x01, 0x02}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)

		var payload speechPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "tts-1", payload.Model)
		require.Equal(t, "hello there", payload.Input)
		require.Equal(t, "alloy", payload.Voice)
		require.InDelta(t, 1.25, payload.Speed, 0.001)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	stream, contentType, err := client.CreateSpeech(context.Background(), &SpeechRequest{
		Model: "tts-1",
		Input: "hello there",
		Voice: "alloy",
		Speed: 1.25,
	})
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	require.Equal(t, "audio/mpeg", contentType)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, audio, got)
}

func TestTranscribeSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "id", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close() // nolint:errcheck // best-effort cleanup
		require.Equal(t, "audio.webm", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, []byte("webm-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"halo dunia"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	result, err := client.Transcribe(context.Background(), &TranscriptionRequest{
		Audio:    []byte("webm-bytes"),
		Model:    "whisper-1",
		Language: "id",
	})
	require.NoError(t, err)
	require.Equal(t, "halo dunia", result.Text)
}

func TestTranscribeOmitsAutoLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["language"]
		require.False(t, present)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Transcribe(context.Background(), &TranscriptionRequest{
		Audio:    []byte("webm-bytes"),
		Model:    "whisper-1",
		Language: "auto",
	})
	require.NoError(t, err)
}
