package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
	"go.uber.org/zap"
)

const (
	defaultChatModel       = "gpt-3.5-turbo"
	defaultChatTemperature = 0.7
	defaultChatMaxTokens   = 1000

	chatRoute = "/api/chat"
)

// ChatHandler relays chat completion requests to the upstream provider,
// either buffered or as a server-sent event passthrough.
type ChatHandler struct {
	client *openai.Client
}

// NewChatHandler creates a chat relay handler backed by the given client.
func NewChatHandler(client *openai.Client) *ChatHandler {
	return &ChatHandler{client: client}
}

type chatPayload struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
	Stream      bool              `json:"stream"`
}

// Handle validates the payload, applies defaults, and relays upstream.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload chatPayload
	if envelope := decodeJSONBody(r, &payload); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	if len(payload.Messages) == 0 {
		respondWithError(w, r, apperrors.NewValidationError("messages are required"))
		return
	}

	req := &openai.ChatRequest{
		Model:       payload.Model,
		Messages:    payload.Messages,
		Temperature: payload.Temperature,
		MaxTokens:   payload.MaxTokens,
		Stream:      payload.Stream,
	}
	if req.Model == "" {
		req.Model = defaultChatModel
	}
	if req.Temperature == nil {
		temperature := defaultChatTemperature
		req.Temperature = &temperature
	}
	if req.MaxTokens == nil {
		maxTokens := defaultChatMaxTokens
		req.MaxTokens = &maxTokens
	}

	if payload.Stream {
		h.handleStream(w, r, req, start)
		return
	}

	completion, err := h.client.CreateChatCompletion(r.Context(), req)
	if err != nil {
		respondWithError(w, r, upstreamFailureEnvelope(err, "chat completion"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(completion)
	metrics.RecordRelay(chatRoute, http.StatusOK, time.Since(start))
}

// handleStream relays the provider's SSE body chunk by chunk with a flush
// after each write. Once the 200 header is out a mid-stream failure can only
// be logged; the caller sees a truncated stream. Caller disconnect cancels
// the request context, which aborts the upstream read.
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request, req *openai.ChatRequest, start time.Time) {
	upstream, err := h.client.StreamChatCompletion(r.Context(), req)
	if err != nil {
		respondWithError(w, r, upstreamFailureEnvelope(err, "chat completion stream"))
		return
	}
	defer upstream.Close() // nolint:errcheck // best-effort cleanup

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	var chunks, bytes int64
	buf := make([]byte, 4096)
	for {
		n, readErr := upstream.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				logStreamInterruption("client write failed", writeErr)
				break
			}
			if canFlush {
				flusher.Flush()
			}
			chunks++
			bytes += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			logStreamInterruption("upstream read failed", readErr)
			break
		}
	}

	metrics.RecordStreamProgress(chatRoute, chunks, bytes)
	metrics.RecordRelay(chatRoute, http.StatusOK, time.Since(start))
}

func logStreamInterruption(reason string, err error) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn("chat stream interrupted",
			zap.String("reason", reason),
			zap.Error(err))
	}
}
