// ABOUTME: Mock-server command for the equiplend CLI
// ABOUTME: Runs the local lending backend used for development and demos

package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/config"
	"github.com/markalston/equiplend/internal/logger"
	"github.com/markalston/equiplend/internal/mockapi"
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run the local mock backend",
	Long: `Run a local backend implementing the login, register, profile, maintenance
and notification endpoints, seeded with one admin and one student account.

Environment Variables:
  MOCK_PORT                 Listen port (default: 5000)
  MOCK_JWT_SECRET           Token signing secret (default: dev-secret)
  MOCK_TOKEN_TTL            Token lifetime (default: 1h)
  MOCK_RATE_LIMIT_AUTH      Login/register requests per minute (default: 5)
  MOCK_RATE_LIMIT_DEFAULT   Other requests per minute (default: 100)
  MOCK_MAINTENANCE          Start in maintenance mode (default: false)
  MOCK_MAINTENANCE_MESSAGE  Maintenance banner text`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runMockServer(ctx, os.Stdout, nil)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)
}

// runMockServer serves until ctx is cancelled and returns exit code
func runMockServer(ctx context.Context, w io.Writer, ready func(net.Addr)) int {
	config.LoadDotEnv()
	logger.Init()

	cfg, err := config.LoadMock()
	if err != nil {
		printError(w, err)
		return 2
	}

	srv, err := mockapi.New(mockapi.Options{
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		RateLimitAuth:      cfg.RateLimitAuth,
		RateLimitDefault:   cfg.RateLimitDefault,
		Maintenance:        cfg.Maintenance,
		MaintenanceMessage: cfg.MaintenanceMsg,
	})
	if err != nil {
		printError(w, err)
		return 2
	}
	defer srv.Close()

	announce := func(addr net.Addr) {
		fmt.Fprintf(w, "Mock backend on http://%s\n", addr)
		fmt.Fprintf(w, "  admin:   %s / %s\n", mockapi.SeedAdminEmail, mockapi.SeedAdminPassword)
		fmt.Fprintf(w, "  student: %s / %s\n", mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)
		if ready != nil {
			ready(addr)
		}
	}

	if err := srv.ListenAndServe(ctx, ":"+cfg.Port, announce); err != nil {
		printError(w, err)
		return 2
	}
	return 0
}
