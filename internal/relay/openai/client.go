package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/simplifygenai/chatrelay/internal/relay"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client relays requests to the OpenAI HTTP API. The API key is injected as
// a bearer Authorization header on every outbound call and is never part of
// any value returned to callers.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openai"
}

// Configured reports whether an upstream credential is present. Routes that
// forward to the provider fail fast with a configuration error when it is not.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// do sends the prepared request and maps non-2xx responses to ProviderError.
// On success the response is returned with its body unread so streaming
// callers can consume it incrementally.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close() // nolint:errcheck // best-effort cleanup
		if readErr != nil {
			return nil, fmt.Errorf("read error response: %w", readErr)
		}
		return nil, relay.NewProviderError(c.Name(), resp.StatusCode, body)
	}

	return resp, nil
}

func (c *Client) checkReady() error {
	if c == nil || !c.Configured() {
		return relay.ErrMissingAPIKey
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
