package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/server/handlers"
	servermw "github.com/simplifygenai/chatrelay/internal/server/middleware"
)

// RouteInfo describes one entry in the route/guard matrix. The routes CLI
// command renders the same table the router registers.
type RouteInfo struct {
	Method      string
	Path        string
	Auth        bool
	RateLimited bool
	Description string
}

// RouteTable lists every route the relay serves and which guards apply.
func RouteTable() []RouteInfo {
	return []RouteInfo{
		{Method: "GET", Path: "/health", Description: "aggregate health"},
		{Method: "GET", Path: "/health/live", Description: "liveness probe"},
		{Method: "GET", Path: "/health/ready", Description: "readiness probe"},
		{Method: "GET", Path: "/health/startup", Description: "startup probe"},
		{Method: "GET", Path: "/version", Description: "build and runtime info"},
		{Method: "GET", Path: "/metrics", Description: "Prometheus exporter proxy"},
		{Method: "GET", Path: "/api/features", Description: "enabled feature flags"},
		{Method: "POST", Path: "/api/chat", Auth: true, RateLimited: true, Description: "chat completion relay (buffered or SSE)"},
		{Method: "GET", Path: "/api/models", Auth: true, RateLimited: true, Description: "chat-capable model listing"},
		{Method: "POST", Path: "/api/tts", Auth: true, RateLimited: true, Description: "text-to-speech relay"},
		{Method: "POST", Path: "/api/stt", Auth: true, RateLimited: true, Description: "speech-to-text relay"},
	}
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := s.opts.Health
	if health == nil {
		health = handlers.NewHealthManager(handlers.AppVersion)
	}

	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Feature discovery stays open: clients call it before authenticating.
	s.router.Get("/api/features", handlers.FeaturesHandler(s.opts.Features))

	chat := handlers.NewChatHandler(s.opts.Upstream)
	models := handlers.NewModelsHandler(s.opts.Upstream)
	speech := handlers.NewSpeechHandler(s.opts.Upstream, s.opts.Features.TTS)
	transcribe := handlers.NewTranscribeHandler(s.opts.Upstream, s.opts.Features.STT)

	// Relay routes sit behind identity and rate-limit guards. The guards do
	// not cover /api/features, /health, /version, or /metrics.
	s.router.Group(func(r chi.Router) {
		r.Use(servermw.RequireIdentity(s.opts.Verifier))
		r.Use(servermw.RateLimit(s.opts.Limiter, s.opts.Clock))

		r.Post("/api/chat", chat.Handle)
		r.Get("/api/models", models.Handle)
		r.Post("/api/tts", speech.Handle)
		r.Post("/api/stt", transcribe.Handle)
	})

	// Admin signal endpoint (optional, requires server.admin_token)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := s.opts.AdminToken
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token configured)")
		}
		return
	}

	// Create HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	// Register admin endpoint
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
