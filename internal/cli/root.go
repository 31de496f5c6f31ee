// Package cli wires the pulsewatch commands: the HTTP server, one-shot
// analysis, and cache management against a running server.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pulsewatch/pulsewatch/internal/config"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// rootOptions carry the persistent flags into subcommands.
type rootOptions struct {
	configPath string
	debug      bool
}

// NewRootCmd creates the root Cobra command for the pulsewatch CLI.
func NewRootCmd(ver string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "pulsewatch",
		Short:   "Social media sentiment aggregation service",
		Long:    "Pulsewatch: aggregate social media posts and analyze their sentiment, with a fingerprinted query-result cache.",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if opts.debug {
				level = "debug"
			}
			if err := config.InitLogger(level, ""); err != nil {
				return err
			}
			logger = config.ComponentLogger("cli")
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			config.CloseLogFile()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.AddCommand(newServeCmd(opts), newAnalyzeCmd(opts), newCacheCmd())

	return cmd
}

// loadConfig builds the effective configuration for opts. The --debug flag
// wins over the configured log level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

const rootCmdExample = `  # Serve the REST API with the built-in demo source
  pulsewatch serve

  # Serve with a config file enabling real sources
  pulsewatch serve --config pulsewatch.yaml

  # One-shot analysis printed as JSON
  pulsewatch analyze "machine learning" --limit 20

  # Cache operations against a running server
  pulsewatch cache stats --addr http://localhost:8000
  pulsewatch cache clear --addr http://localhost:8000`
