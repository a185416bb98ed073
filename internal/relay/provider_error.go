package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned before any network call when the upstream
// credential was never configured. Callers must surface it as a configuration
// fault, not a provider fault.
var ErrMissingAPIKey = errors.New("upstream api key not configured")

// ProviderError is returned when the provider responds with a non-2xx status.
//
// RawResponse holds the provider response body bytes. It must never include
// API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// errorEnvelope is the provider's standard error body shape:
// {"error":{"message":"...","type":"...","code":"..."}}.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewProviderError builds a ProviderError from a non-2xx response body,
// extracting the provider's error envelope message when the body parses as
// one. Parseable says whether the envelope was understood; callers pass the
// provider status through only in that case.
func NewProviderError(provider string, status int, body []byte) *ProviderError {
	perr := &ProviderError{
		Provider:    provider,
		StatusCode:  status,
		Message:     strings.TrimSpace(string(body)),
		RawResponse: body,
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		perr.Message = envelope.Error.Message
	}
	return perr
}

// Parseable reports whether the provider supplied a usable error message.
// When false the relay answers with a generic internal error instead of
// passing the provider status through.
func (e *ProviderError) Parseable() bool {
	if e == nil {
		return false
	}
	var envelope errorEnvelope
	return json.Unmarshal(e.RawResponse, &envelope) == nil && envelope.Error.Message != ""
}
