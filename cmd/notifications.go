// ABOUTME: Notifications command for the equiplend CLI
// ABOUTME: Lists the signed-in user's notifications and marks them read

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/models"
)

var unreadOnly bool

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notes"},
	Short:   "List notifications for the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runNotifications(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var markReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runMarkRead(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(markReadCmd)
	notificationsCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread notifications")
}

// runNotifications lists notifications and returns exit code
func runNotifications(ctx context.Context, w io.Writer) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	if !a.Session.IsAuthenticated() {
		fmt.Fprintln(w, "Error: not signed in")
		return 1
	}

	list, err := a.Notifications.Poll(ctx)
	if err != nil {
		return requestExitCode(w, err)
	}
	if unreadOnly {
		list = filterUnread(list)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(list, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		fmt.Fprintln(w, formatNotificationsHuman(list))
	}
	return 0
}

// runMarkRead marks one notification read and returns exit code
func runMarkRead(ctx context.Context, w io.Writer, id string) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	if !a.Session.IsAuthenticated() {
		fmt.Fprintln(w, "Error: not signed in")
		return 1
	}
	if err := a.Client.MarkNotificationRead(ctx, id); err != nil {
		return requestExitCode(w, err)
	}
	fmt.Fprintf(w, "Marked %s read\n", id)
	return 0
}

// requestExitCode maps an authenticated request failure to an exit code.
// A 401 has already cleared the stored token.
func requestExitCode(w io.Writer, err error) int {
	printError(w, err)
	if client.StatusCode(err) >= 400 {
		return 1
	}
	return 2
}

func filterUnread(list []models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

func formatNotificationsHuman(list []models.Notification) string {
	if len(list) == 0 {
		return "No notifications"
	}
	var sb strings.Builder
	for i, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(&sb, "%s %-24s %s\n  %s", mark, n.ID, n.Title, n.Message)
		if i < len(list)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
