package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"

	"github.com/simplifygenai/chatrelay/internal/config"
	"github.com/simplifygenai/chatrelay/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Loaded configuration snapshot, immutable after initConfig.
	appConfig *Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// Config re-exports the loaded configuration type for subcommands.
type Config = config.Config

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "HTTP relay between a chat frontend and an LLM provider",
	Long: `chatrelay is a thin HTTP relay that fronts an LLM provider for a web
chat client: chat completions (buffered or streamed), model listing, and
optional text-to-speech and speech-to-text, behind bearer-token verification
and per-client rate limiting.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to ./config.yaml or $HOME/.config/chatrelay/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// initConfig loads the configuration snapshot and the CLI logger.
func initConfig() {
	observability.InitCLILogger("chatrelay", verbose)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	appConfig = cfg
}
