// ABOUTME: Health command for the equiplend CLI
// ABOUTME: Checks backend connectivity and maintenance state

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/models"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long:  `Check connectivity to the EquipLend backend and report its status.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		printError(w, err)
		return 2
	}

	c, err := client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout), client.WithProxy(cfg.AllProxy))
	if err != nil {
		printError(w, err)
		return 2
	}

	resp, err := c.Health(ctx)
	if err != nil {
		printError(w, err)
		return 2
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(cfg.APIURL, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(cfg.APIURL, resp))
	}
	return 0
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *models.HealthResponse) string {
	return fmt.Sprintf(`Backend:      %s
Status:       %s
Maintenance:  %t`, url, resp.Status, resp.Maintenance)
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *models.HealthResponse) string {
	output := map[string]interface{}{
		"backend":     url,
		"status":      resp.Status,
		"maintenance": resp.Maintenance,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
