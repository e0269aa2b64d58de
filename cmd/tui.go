// ABOUTME: TUI command for the equiplend CLI
// ABOUTME: Opens the interactive terminal UI with logs redirected to a file

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/app"
	"github.com/markalston/equiplend/internal/logger"
	"github.com/markalston/equiplend/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open the interactive terminal UI. Logs are written to LOG_FILE, or to
debug.log in the config directory, while the UI owns the terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runTUI(ctx); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI starts the UI and returns exit code
func runTUI(ctx context.Context) int {
	cfg, err := loadConfig()
	if err != nil {
		printError(os.Stderr, err)
		return 2
	}

	f, err := logger.OpenFile(cfg.LogFile, cfg.ConfigDir)
	if err != nil {
		logger.Discard()
	} else {
		defer f.Close()
		logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: f})
	}

	a, err := app.New(cfg)
	if err != nil {
		printError(os.Stderr, err)
		return 2
	}
	defer a.Close()

	if err := tui.Run(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return 1
	}
	return 0
}
