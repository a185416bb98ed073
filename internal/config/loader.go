// Package config loads the relay configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence
// (later layers win).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Defaults for a bare deployment.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 3001
	DefaultMaxBodyBytes    = 10 << 20
	DefaultShutdownTimeout = 15 * time.Second

	DefaultUpstreamBaseURL = "https://api.openai.com/v1"
	DefaultUpstreamTimeout = 2 * time.Minute

	envPrefix = "CHATRELAY"
)

// envAliases maps config paths to the bare environment variable names the
// original deployment used, so existing .env files keep working alongside the
// CHATRELAY_* forms.
var envAliases = map[string]string{
	"server.port":          "PORT",
	"server.admin_token":   "CHATRELAY_ADMIN_TOKEN",
	"upstream.api_key":     "OPENAI_API_KEY",
	"upstream.base_url":    "OPENAI_BASE_URL",
	"auth.url":             "SUPABASE_URL",
	"auth.anon_key":        "SUPABASE_ANON_KEY",
	"features.tts":         "ENABLE_TTS",
	"features.stt":         "ENABLE_STT",
	"cors.allowed_origins": "ALLOWED_ORIGINS",
}

// Load reads configuration from the optional file at path (searched in the
// working directory and ~/.config/chatrelay when empty) plus environment
// variables, validates it, and returns an immutable snapshot.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		// Secrets arrive through the environment, never the config file.
		if err := v.BindEnv(key, envPrefix+"_"+strings.ReplaceAll(strings.ToUpper(key), ".", "_"), alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/chatrelay")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", "30s")
	// Zero write timeout: a deadline would cut long SSE streams.
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout.String())
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)

	v.SetDefault("upstream.base_url", DefaultUpstreamBaseURL)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.timeout", DefaultUpstreamTimeout.String())

	v.SetDefault("auth.url", "")
	v.SetDefault("auth.anon_key", "")
	v.SetDefault("auth.timeout", "10s")

	v.SetDefault("rate_limit.limit", 100)
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("rate_limit.sweep_interval", "10m")

	v.SetDefault("features.tts", false)
	v.SetDefault("features.stt", false)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Validate rejects configurations the relay cannot run with. Missing secrets
// are deliberately not errors; the affected surfaces degrade instead.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		problems = append(problems, "server.max_body_bytes must be positive")
	}
	if c.Upstream.BaseURL == "" {
		problems = append(problems, "upstream.base_url must not be empty")
	}
	if c.RateLimit.Limit <= 0 {
		problems = append(problems, "rate_limit.limit must be positive")
	}
	if c.RateLimit.Window <= 0 {
		problems = append(problems, "rate_limit.window must be positive")
	}
	if c.RateLimit.SweepInterval <= 0 {
		problems = append(problems, "rate_limit.sweep_interval must be positive")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		problems = append(problems, fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
