package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/config"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	verbose    bool
	logFormat  string

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "ragdebug",
	Short: "ragdebug: retrieval-augmented Python error debugging",
	Long: `ragdebug takes a Python error log, retrieves related reference notes,
asks a language model for a root cause and a minimal patch, and runs the
patch in a sandbox until it exits cleanly or attempts run out.

Configuration is read from --config, ./ragdebug.yaml or ~/.ragdebug/config.yaml,
with environment overrides (ANTHROPIC_API_KEY, USE_DOCKER_SANDBOX, MAX_ATTEMPTS, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), logFormat, verbose)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. Warnings and errors are always
// shown; --verbose adds info and debug.
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// loadValidConfig loads the config and fails on the first validation error.
func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w (run 'ragdebug config validate' for all errors)", errs[0])
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(promptsCmd)
}
