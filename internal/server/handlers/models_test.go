package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simplifygenai/chatrelay/internal/relay/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsHandler_FiltersToGPTAndSortsByID(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"whisper-1","object":"model","owned_by":"openai"},
			{"id":"gpt-4","object":"model","owned_by":"openai"},
			{"id":"dall-e-3","object":"model","owned_by":"openai"},
			{"id":"gpt-3.5-turbo","object":"model","owned_by":"openai"}
		]}`))
	}))
	defer upstream.Close()

	handler := NewModelsHandler(openai.NewClient(upstream.URL, "test-key"))

	req := httptest.NewRequest("GET", "/api/models", nil)
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response modelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	ids := make([]string, 0, len(response.Data))
	for _, model := range response.Data {
		ids = append(ids, model.ID)
	}
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-4"}, ids)
}

func TestModelsHandler_MissingAPIKeyIsConfigMissing(t *testing.T) {
	handler := NewModelsHandler(openai.NewClient("http://127.0.0.1:0", ""))

	req := httptest.NewRequest("GET", "/api/models", nil)
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "CONFIG_MISSING", decodeError(t, rec).Code)
}

func TestModelsHandler_NonParseableUpstreamFailureIsGeneric500(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream proxy error"))
	}))
	defer upstream.Close()

	handler := NewModelsHandler(openai.NewClient(upstream.URL, "test-key"))

	req := httptest.NewRequest("GET", "/api/models", nil)
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	// A plain-text upstream failure carries no provider status to re-emit,
	// so the relay answers with a generic 500 rather than echoing 503.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", decodeError(t, rec).Code)
}
