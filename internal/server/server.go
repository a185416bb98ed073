package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/simplifygenai/chatrelay/internal/auth"
	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
	"github.com/simplifygenai/chatrelay/internal/server/handlers"
	servermw "github.com/simplifygenai/chatrelay/internal/server/middleware"
)

// Options carries the constructed dependencies the relay server runs on.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64

	AllowedOrigins []string
	Features       handlers.FeatureSet

	// AdminToken enables the /admin/signal endpoint when non-empty.
	AdminToken string

	Upstream *openai.Client
	Verifier *auth.Verifier
	Limiter  *ratelimit.FixedWindow
	Clock    func() time.Time

	Health *handlers.HealthManager
}

// Server represents the HTTP relay server
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
}

// New creates a new HTTP server instance wired with the relay routes.
func New(opts Options) *Server {
	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	// Custom middleware in order (RequestID → Metrics → CORS → BodyLimit → Recovery)
	r.Use(servermw.RequestID)                      // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics)                 // 2. Metrics (measure everything)
	r.Use(servermw.CORS(opts.AllowedOrigins))      // 3. CORS allow-list
	r.Use(servermw.BodyLimit(opts.MaxBodyBytes))   // 4. Request body cap
	r.Use(servermw.Recovery)                       // 5. Panic recovery

	// Standardized error responses using centralized HandleError
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewNotFoundError("The requested resource was not found")
		HandleError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
		HandleError(w, req, err)
	})

	if opts.Upstream == nil {
		opts.Upstream = openai.NewClient("", "")
	}
	if opts.Verifier == nil {
		opts.Verifier = auth.NewVerifier("", "")
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewFixedWindow(0, 0)
	}

	s := &Server{
		router: r,
		opts:   opts,
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	// Register routes
	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// WriteTimeout stays at the configured value, which is zero by
		// default: a deadline would cut long SSE chat streams mid-flight.
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.opts.Host),
		zap.Int("port", s.opts.Port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}
