// ABOUTME: Route command for the equiplend CLI
// ABOUTME: Shows where a path leads for the stored session without contacting the backend

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/route"
	"github.com/markalston/equiplend/internal/session"
)

var routeCmd = &cobra.Command{
	Use:   "route <path>",
	Short: "Resolve a path for the stored session",
	Long: `Evaluate the route guards for path using the stored session and print the
decision and the page the user would end up on.

Exit codes:
  0 - Path is allowed
  1 - Path redirects elsewhere
  2 - Error`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runRoute(os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the application routes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, formatRoutes(route.Routes()))
	},
}

func init() {
	rootCmd.AddCommand(routeCmd, routesCmd)
}

// runRoute resolves path and returns exit code
func runRoute(w io.Writer, path string) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	snap := a.Session.Snapshot()
	first := route.Resolve(snap, path)
	final, _ := route.Follow(snap, path)

	if IsJSONOutput() {
		fmt.Fprintln(w, formatRouteJSON(snap, path, first, final))
	} else {
		fmt.Fprintln(w, formatRouteHuman(snap, path, first, final))
	}

	if !first.Allow {
		return 1
	}
	return 0
}

func formatRouteHuman(snap session.Snapshot, path string, d route.Decision, final string) string {
	who := "anonymous"
	if snap.IsAuthenticated {
		who = string(snap.Role())
	}
	return fmt.Sprintf(`Path:      %s
Session:   %s
Decision:  %s
Lands on:  %s`, path, who, d, final)
}

func formatRouteJSON(snap session.Snapshot, path string, d route.Decision, final string) string {
	output := map[string]interface{}{
		"path":          path,
		"authenticated": snap.IsAuthenticated,
		"role":          string(snap.Role()),
		"allow":         d.Allow,
		"redirect":      d.Redirect,
		"final":         final,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}

func formatRoutes(routes []route.Route) string {
	var sb strings.Builder
	for _, r := range routes {
		fmt.Fprintf(&sb, "%-22s %-9s %s\n", r.Path, accessName(r.Access), describeRoute(r))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func accessName(a route.Access) string {
	switch a {
	case route.Guarded:
		return "guarded"
	case route.Redirect:
		return "redirect"
	default:
		return "public"
	}
}

func describeRoute(r route.Route) string {
	switch r.Access {
	case route.Redirect:
		return "-> " + r.Target
	case route.Guarded:
		if r.Role == "" {
			return "any signed-in user"
		}
		return string(r.Role) + " only"
	default:
		return r.Title
	}
}
