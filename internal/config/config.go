package config

import (
	"time"
)

// Config is the complete relay configuration, assembled once at startup and
// treated as immutable afterwards: components receive the values they need at
// construction time and never read config again.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Features  FeaturesConfig  `mapstructure:"features"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// AdminToken guards the optional /admin/signal endpoint. Empty leaves
	// the endpoint unregistered.
	AdminToken string `mapstructure:"admin_token"`
}

// UpstreamConfig points at the LLM provider the relay forwards to. An empty
// APIKey is not a startup error: provider routes answer CONFIG_MISSING until
// one is supplied.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig points at the identity provider. An empty URL or AnonKey
// disables verification and every caller resolves as anonymous.
type AuthConfig struct {
	URL     string        `mapstructure:"url"`
	AnonKey string        `mapstructure:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig controls the per-client fixed-window admission policy.
type RateLimitConfig struct {
	Limit         int           `mapstructure:"limit"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// FeaturesConfig toggles the optional audio features.
type FeaturesConfig struct {
	TTS bool `mapstructure:"tts"`
	STT bool `mapstructure:"stt"`
}

// CORSConfig lists the browser origins allowed to call the relay with
// credentials.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI commands)
// - STRUCTURED: Structured sinks, correlation IDs (the relay server)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also proxied at /metrics on the main HTTP port
	Port int `mapstructure:"port"`
}
