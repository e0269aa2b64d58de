// ABOUTME: Root command for the equiplend CLI
// ABOUTME: Handles global flags, configuration loading and logger setup

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/config"
	"github.com/markalston/equiplend/internal/logger"
)

var (
	apiURL     string
	jsonOutput bool
	storeKind  string
	configDir  string
	verbose    bool
)

// rootCmd is the base command. Without a subcommand it opens the TUI.
var rootCmd = &cobra.Command{
	Use:   "equiplend",
	Short: "Terminal client for the EquipLend equipment lending service",
	Long: `equiplend signs students and administrators in to the EquipLend backend,
keeps the session across restarts and routes each role to its own screens.

Run without a subcommand to open the interactive terminal UI.

Environment Variables:
  EQUIPLEND_API_URL      Backend API URL (default: http://localhost:5000)
  EQUIPLEND_STORE        Session store: file, sqlite or memory (default: file)
  EQUIPLEND_CONFIG_DIR   Directory for the session and logs (default: ~/.config/equiplend)
  EQUIPLEND_ALL_PROXY    ssh+socks5:// proxy for reaching the backend
  LOG_LEVEL, LOG_FORMAT  Logging (default: info, text)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runTUI(ctx); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides EQUIPLEND_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Session store: file, sqlite or memory (overrides EQUIPLEND_STORE)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (overrides EQUIPLEND_CONFIG_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads the environment (and .env files) and applies flag overrides
func loadConfig() (*config.Config, error) {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}
	if storeKind != "" {
		cfg.Store = strings.ToLower(storeKind)
	}
	if configDir != "" {
		cfg.ConfigDir = configDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging sends logs to stderr, or to cfg.LogFile when one is set.
// The returned func closes the file.
func setupLogging(cfg *config.Config) func() {
	opts := logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	if cfg.LogFile == "" {
		logger.Configure(opts)
		return func() {}
	}
	f, err := logger.OpenFile(cfg.LogFile, cfg.ConfigDir)
	if err != nil {
		logger.Configure(opts)
		return func() {}
	}
	opts.Output = f
	logger.Configure(opts)
	return func() { f.Close() }
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
