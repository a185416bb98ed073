package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simplifygenai/chatrelay/internal/auth"
	errwrap "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/observability"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
	"github.com/simplifygenai/chatrelay/internal/server"
	"github.com/simplifygenai/chatrelay/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP relay server",
	Long: `Start the HTTP relay server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig

		// Flags override the loaded config snapshot.
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		observability.InitServerLogger("chatrelay", cfg.Logging.Level)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics("chatrelay", cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		upstream := openai.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey)
		upstream.Timeout = cfg.Upstream.Timeout

		verifier := auth.NewVerifier(cfg.Auth.URL, cfg.Auth.AnonKey)
		if cfg.Auth.Timeout > 0 {
			verifier.Timeout = cfg.Auth.Timeout
		}

		limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window)

		observability.ServerLogger.Info("Initializing relay",
			zap.String("service", "chatrelay"),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("upstream_configured", upstream.Configured()),
			zap.Bool("auth_enabled", verifier.Enabled()),
			zap.Bool("tts_enabled", cfg.Features.TTS),
			zap.Bool("stt_enabled", cfg.Features.STT),
			zap.Int("rate_limit", cfg.RateLimit.Limit),
			zap.Duration("rate_window", cfg.RateLimit.Window))

		if !verifier.Enabled() {
			observability.ServerLogger.Warn("Identity provider not configured - all callers resolve as anonymous")
		}
		if !upstream.Configured() {
			observability.ServerLogger.Warn("Upstream API key not configured - provider routes will answer CONFIG_MISSING")
		}

		// Health manager with relay checkers
		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("upstream_config", handlers.UpstreamConfigChecker{Client: upstream})
		hm.RegisterChecker("identity_provider", handlers.IdentityProviderChecker{Verifier: verifier})
		hm.RegisterChecker("rate_limiter", handlers.RateLimiterChecker{Limiter: limiter})
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		srv := server.New(server.Options{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			AdminToken:     cfg.Server.AdminToken,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Features: handlers.FeatureSet{
				TTS: cfg.Features.TTS,
				STT: cfg.Features.STT,
			},
			Upstream: upstream,
			Verifier: verifier,
			Limiter:  limiter,
			Health:   hm,
		})

		// Background eviction sweep keeps the limiter map bounded.
		sweepCtx, stopSweep := context.WithCancel(cmd.Context())
		go limiter.Run(sweepCtx, cfg.RateLimit.SweepInterval)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Stop the limiter sweep
		signals.OnShutdown(func(ctx context.Context) error {
			stopSweep()
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Config is an immutable snapshot, so SIGHUP cannot re-wire running
		// components; a restart picks up changes.
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: config is immutable at runtime, restart to apply changes")
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 3001, "server port")
}
