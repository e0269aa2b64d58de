// ABOUTME: Maintenance command for the equiplend CLI
// ABOUTME: Prints the backend maintenance switch once or follows it with --watch

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/models"
)

var maintenanceWatch bool

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Show whether the service is in maintenance mode",
	Long: `Show the system-wide maintenance switch. With --watch the status is polled
at EQUIPLEND_MAINTENANCE_INTERVAL and printed whenever it changes.

Exit codes:
  0 - Service is available
  1 - Maintenance mode is on
  2 - Error (configuration, connectivity)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runMaintenance(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(maintenanceCmd)
	maintenanceCmd.Flags().BoolVarP(&maintenanceWatch, "watch", "w", false, "Keep polling and print changes")
}

// runMaintenance fetches the maintenance status and returns exit code
func runMaintenance(ctx context.Context, w io.Writer) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	if maintenanceWatch {
		return watchMaintenance(ctx, w, a.Maintenance.OnResult, a.Maintenance.Start)
	}

	status, err := a.Maintenance.Poll(ctx)
	if err != nil {
		printError(w, err)
		return 2
	}
	fmt.Fprintln(w, formatMaintenance(status))
	if status.MaintenanceMode {
		return 1
	}
	return 0
}

// watchMaintenance prints every change until ctx is cancelled
func watchMaintenance(
	ctx context.Context,
	w io.Writer,
	onResult func(func(models.MaintenanceStatus, error)),
	start func(context.Context),
) int {
	var (
		mu      sync.Mutex
		printed bool
		last    models.MaintenanceStatus
	)
	onResult(func(status models.MaintenanceStatus, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintf(w, "Warning: %v\n", err)
			return
		}
		if printed && status == last {
			return
		}
		printed = true
		last = status
		fmt.Fprintln(w, formatMaintenance(status))
	})
	start(ctx)
	<-ctx.Done()
	return 0
}

func formatMaintenance(status models.MaintenanceStatus) string {
	if IsJSONOutput() {
		data, _ := json.Marshal(status)
		return string(data)
	}
	if !status.MaintenanceMode {
		return "Maintenance: off"
	}
	if status.MaintenanceMessage == "" {
		return "Maintenance: on"
	}
	return "Maintenance: on - " + status.MaintenanceMessage
}
