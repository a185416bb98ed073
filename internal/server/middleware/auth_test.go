package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simplifygenai/chatrelay/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityProbe(t *testing.T, captured **auth.Identity) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFrom(r.Context())
		require.NotNil(t, identity, "expected identity in request context")
		*captured = identity
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentity_DisabledVerifierPassesAnonymous(t *testing.T) {
	var captured *auth.Identity
	handler := RequireIdentity(auth.NewVerifier("", ""))(identityProbe(t, &captured))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.True(t, captured.Anonymous)
}

func TestRequireIdentity_MissingTokenRejected(t *testing.T) {
	verifier := auth.NewVerifier("https://identity.example.com", "anon-key")
	handler := RequireIdentity(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "UNAUTHORIZED", response.Error.Code)
}

func TestRequireIdentity_ResolvesVerifiedIdentity(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-42","email":"dev@example.com"}`))
	}))
	defer provider.Close()

	var captured *auth.Identity
	verifier := auth.NewVerifier(provider.URL, "anon-key")
	handler := RequireIdentity(verifier)(identityProbe(t, &captured))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-42", captured.ID)
	assert.False(t, captured.Anonymous)
}

func TestRequireIdentity_InvalidTokenRejected(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer provider.Close()

	verifier := auth.NewVerifier(provider.URL, "anon-key")
	handler := RequireIdentity(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a rejected token")
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireIdentity_ProviderOutageIsNotCallerFault(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer provider.Close()

	verifier := auth.NewVerifier(provider.URL, "anon-key")
	handler := RequireIdentity(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run during a provider outage")
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "AUTH_UNAVAILABLE", response.Error.Code)
}
