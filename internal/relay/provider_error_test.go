package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProviderErrorExtractsEnvelopeMessage(t *testing.T) {
	body := []byte(`{"error":{"message":"model not found","type":"invalid_request_error","code":"model_not_found"}}`)
	perr := NewProviderError("openai", 404, body)
	require.Equal(t, 404, perr.StatusCode)
	require.Equal(t, "model not found", perr.Message)
	require.True(t, perr.Parseable())
	require.Contains(t, perr.Error(), "status 404")
}

func TestNewProviderErrorFallsBackToRawBody(t *testing.T) {
	perr := NewProviderError("openai", 502, []byte("bad gateway"))
	require.Equal(t, "bad gateway", perr.Message)
	require.False(t, perr.Parseable())
}

func TestNewProviderErrorEmptyBody(t *testing.T) {
	perr := NewProviderError("openai", 500, nil)
	require.False(t, perr.Parseable())
	require.Equal(t, "", perr.Message)
}
