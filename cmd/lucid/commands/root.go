package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/config"
	"github.com/robottwo/lucid/internal/engine"
	"github.com/robottwo/lucid/internal/styles"
)

// BUILD_VERSION is stamped by the release build.
var BUILD_VERSION = "dev"

var (
	flagConfig   string
	flagLogLevel string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lucid",
	Short: "Local explanations for text classifiers",
	Long: `Lucid explains the predictions of text classification models.

It scores input texts with a configured model, asks one or more
attribution engines which tokens drove each prediction, and renders
the result as terminal plots or an HTML dashboard. Past runs are
stored locally and can be browsed interactively.`,
	Version:       BUILD_VERSION,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logLevel := cfg.LogLevel
		if flagLogLevel != "" {
			logLevel = flagLogLevel
		}
		logger, err = initializeLogger(logLevel)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		engine.RegisterAll(cfg.Engines, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. Errors are printed to stderr in the
// shared error style; the caller decides the exit code.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override configured log level (debug, info, warn, error)")
}
