package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
)

func TestRequestID_GeneratesAndEchoesID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/models", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, seen, "expected a request ID in the handler context")
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_ReusesCallerHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/models", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", seen)
	assert.Equal(t, "caller-supplied-id", rec.Header().Get(RequestIDHeader))
}

func TestRequestID_CorrelatesGuardRejections(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, time.Hour)
	guarded := RequestID(RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/chat", nil)
		req.Header.Set(RequestIDHeader, "burst-request")
		req.RemoteAddr = "203.0.113.9:4455"
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)

		if i == 0 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "RATE_LIMITED", response.Error.Code)
		assert.Equal(t, "burst-request", response.Error.RequestID)
	}
}
