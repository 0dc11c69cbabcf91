// Package cli implements the command-line interface for geoedit.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/geoedit/internal/config"
	"github.com/kilupskalvis/geoedit/internal/history"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Logger *slog.Logger
}

var (
	flagLogLevel  string
	flagLogFormat string
	flagNoColor   bool
)

// initContext loads the config and applies command line overrides
func initContext(cmd *cobra.Command) *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if flagNoColor || !cfg.Color {
		color.NoColor = true
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	logger.Debug("config loaded", "path", cfg.Path())

	return &cmdContext{Config: cfg, Logger: logger}
}

// loadHistory loads data files and an optional saved history
func (c *cmdContext) loadHistory(cmd *cobra.Command, dataPaths []string, historyPath string) (*history.History, error) {
	return history.Load(cmd.Context(), dataPaths, historyPath, history.WithLogger(c.Logger))
}

var rootCmd = &cobra.Command{
	Use:   "geoedit",
	Short: "Inspect map edits",
	Long: `geoedit loads OpenStreetMap style entity documents into a versioned graph,
replays saved edit histories on top of them, and answers spatial queries
against the base data or the edited result.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (json, text)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(queryCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
