package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/geoedit/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Write a .geoedit.toml with the default settings to the current directory.`,
	Args:  cobra.NoArgs,
	Run:   runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	cfg, err := config.Initialize(cwd)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Fprintf(cmd.OutOrStdout(), "Initialized config in %s\n", cfg.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "  log_level = %q, log_format = %q\n", cfg.LogLevel, cfg.LogFormat)
}
