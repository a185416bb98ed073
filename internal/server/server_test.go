package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
	"github.com/simplifygenai/chatrelay/internal/server/handlers"
)

func newTestServer(opts Options) *Server {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	return New(opts)
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/chat", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Fatalf("expected error code METHOD_NOT_ALLOWED, got %s", body.Error.Code)
	}
}

func TestHealthAndFeaturesBypassGuards(t *testing.T) {
	health := handlers.NewHealthManager("test")
	srv := newTestServer(Options{
		Health:   health,
		Features: handlers.FeatureSet{TTS: true},
		// A zero-admission limiter proves the guard does not cover these routes.
		Limiter: &ratelimit.FixedWindow{Limit: 1, Window: time.Hour},
	})

	// Exhaust the only admission slot on a guarded route first.
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	for _, path := range []string{"/health", "/api/features", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to stay open, got %d", path, rec.Code)
		}
	}
}

func TestFeaturesEndpointReflectsConfig(t *testing.T) {
	srv := newTestServer(Options{Features: handlers.FeatureSet{TTS: true, STT: false}})

	req := httptest.NewRequest(http.MethodGet, "/api/features", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var features handlers.FeatureSet
	if err := json.NewDecoder(rec.Body).Decode(&features); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !features.TTS || features.STT {
		t.Fatalf("expected tts=true stt=false, got %+v", features)
	}
}

func TestGuardedRoutesAreRateLimited(t *testing.T) {
	srv := newTestServer(Options{
		Limiter: &ratelimit.FixedWindow{Limit: 2, Window: time.Hour},
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d should have been admitted", i+1)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 once the window is full, got %d", rec.Code)
	}
}

func TestDisabledFeatureStillConsumesQuota(t *testing.T) {
	srv := newTestServer(Options{
		Features: handlers.FeatureSet{TTS: false},
		Limiter:  &ratelimit.FixedWindow{Limit: 1, Window: time.Hour},
	})

	// The feature gate runs after admission, so the rejected call burns the
	// only slot in the window.
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(`{"text":"hi"}`))
	req.RemoteAddr = "203.0.113.9:1000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for disabled feature, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Error.Code != "FEATURE_DISABLED" {
		t.Fatalf("expected FEATURE_DISABLED, got %s", body.Error.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(`{"text":"hi"}`))
	req.RemoteAddr = "203.0.113.9:1000"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 after quota burned, got %d", rec.Code)
	}
}

func TestCORSPreflightOnRelayRoute(t *testing.T) {
	srv := newTestServer(Options{
		AllowedOrigins: []string{"https://app.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for preflight, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "https://app.example.com" {
		t.Fatalf("expected allow-origin header, got %q", origin)
	}
}

func TestAdminEndpointRequiresConfiguredToken(t *testing.T) {
	srv := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodPost, "/admin/signal", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an admin token configured, got %d", rec.Code)
	}

	srv = newTestServer(Options{AdminToken: "topsecret"})

	req = httptest.NewRequest(http.MethodPost, "/admin/signal", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Fatal("expected /admin/signal to be registered when a token is configured")
	}
	if rec.Code == http.StatusOK {
		t.Fatal("expected unauthenticated admin request to be rejected")
	}
}

func TestRouteTableMatchesRegisteredGuards(t *testing.T) {
	guarded := map[string]bool{
		"/api/chat":   true,
		"/api/models": true,
		"/api/tts":    true,
		"/api/stt":    true,
	}

	for _, route := range RouteTable() {
		want := guarded[route.Path]
		if route.Auth != want || route.RateLimited != want {
			t.Fatalf("route %s %s guard flags out of sync: %+v", route.Method, route.Path, route)
		}
	}
}
