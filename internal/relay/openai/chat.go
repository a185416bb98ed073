package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ChatRequest carries a chat completion call to the provider. Messages are
// kept as raw JSON so caller-supplied message objects (including multi-part
// content with embedded images) pass through unmodified.
type ChatRequest struct {
	Model       string
	Messages    []json.RawMessage
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

type chatCompletionPayload struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream"`
}

func (c *Client) buildChatHTTPRequest(ctx context.Context, req *ChatRequest, stream bool) (*http.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := chatCompletionPayload{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// CreateChatCompletion sends a buffered (non-streaming) chat completion and
// returns the provider's response document verbatim.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (json.RawMessage, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	httpReq, err := c.buildChatHTTPRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode response: provider returned invalid JSON")
	}

	return json.RawMessage(body), nil
}

// StreamChatCompletion sends a streaming chat completion and returns the raw
// provider body: a lazy, finite, non-restartable sequence of SSE-framed byte
// chunks. The caller owns the stream and must close it; cancelling ctx aborts
// the upstream read. No client timeout is applied here since a stream may
// legitimately outlive it.
func (c *Client) StreamChatCompletion(ctx context.Context, req *ChatRequest) (io.ReadCloser, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}

	httpReq, err := c.buildChatHTTPRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}
