// ABOUTME: Session commands: login, register, logout and whoami
// ABOUTME: Drive the shared sign-in flow and report the persisted session

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/markalston/equiplend/internal/app"
	"github.com/markalston/equiplend/internal/bootstrap"
	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/route"
)

var (
	loginEmail    string
	loginPassword string

	registerReq models.RegisterRequest

	whoamiOffline bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in with email and password. The session is stored in the configured
store and reused by later commands and the TUI.

Prompts for the password when --password is not given.

Exit codes:
  0 - Signed in
  1 - Credentials rejected or rate limited
  2 - Error (configuration, connectivity)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if loginPassword == "" {
			if err := promptPassword(&loginPassword); err != nil {
				printError(os.Stdout, err)
				os.Exit(2)
			}
		}
		exitCode := runLogin(ctx, os.Stdout, loginEmail, loginPassword)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a student account and sign in",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if registerReq.Password == "" {
			if err := promptPassword(&registerReq.Password); err != nil {
				printError(os.Stdout, err)
				os.Exit(2)
			}
		}
		exitCode := runRegister(ctx, os.Stdout, registerReq)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runLogout(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the stored session. Unless --offline is set the token is verified
against the backend first, and a rejected token is cleared.

Exit codes:
  0 - Signed in
  1 - Not signed in, or the session was rejected
  2 - Error (configuration, connectivity)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted when omitted)")
	loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().StringVar(&registerReq.FullName, "name", "", "Full name")
	registerCmd.Flags().StringVarP(&registerReq.Email, "email", "e", "", "Email")
	registerCmd.Flags().StringVarP(&registerReq.Password, "password", "p", "", "Password (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerReq.StudentID, "student-id", "", "Student ID")
	registerCmd.Flags().StringVar(&registerReq.Phone, "phone", "", "Phone number")
	registerCmd.Flags().StringVar(&registerReq.Faculty, "faculty", "", "Faculty")
	registerCmd.Flags().StringVar(&registerReq.Class, "class", "", "Class")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("email")

	whoamiCmd.Flags().BoolVar(&whoamiOffline, "offline", false, "Show the stored session without verifying it")
}

func promptPassword(dst *string) error {
	return huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(dst).
		Run()
}

// openApp loads configuration and builds the component graph
func openApp() (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	closeLog := setupLogging(cfg)

	a, err := app.New(cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		closeLog()
	}, nil
}

// authExitCode maps a sign-in failure to an exit code
func authExitCode(w io.Writer, err error) int {
	switch {
	case errors.Is(err, app.ErrCoolingDown):
		printError(w, err)
		return 1
	case errors.Is(err, client.ErrRateLimited):
		if d, ok := client.RetryAfter(err); ok && d > 0 {
			fmt.Fprintf(w, "Error: too many attempts, retry in %ds\n", int(d.Seconds()+0.5))
		} else {
			fmt.Fprintln(w, "Error: too many attempts, try again later")
		}
		return 1
	case errors.Is(err, client.ErrUnauthorized), client.StatusCode(err) >= 400:
		printError(w, err)
		return 1
	default:
		printError(w, err)
		return 2
	}
}

// runLogin signs in and returns exit code
func runLogin(ctx context.Context, w io.Writer, email, password string) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	path, err := a.Login(ctx, email, password)
	if err != nil {
		return authExitCode(w, err)
	}
	printSignedIn(w, a.Session.CurrentUser(), path)
	return 0
}

// runRegister creates an account and returns exit code
func runRegister(ctx context.Context, w io.Writer, req models.RegisterRequest) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	path, err := a.Register(ctx, req)
	if err != nil {
		return authExitCode(w, err)
	}
	printSignedIn(w, a.Session.CurrentUser(), path)
	return 0
}

// runLogout clears the stored session and returns exit code
func runLogout(w io.Writer) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	wasSignedIn := a.Session.IsAuthenticated()
	a.Logout()
	if IsJSONOutput() {
		data, _ := json.Marshal(map[string]bool{"signed_out": wasSignedIn})
		fmt.Fprintln(w, string(data))
	} else if wasSignedIn {
		fmt.Fprintln(w, "Signed out")
	} else {
		fmt.Fprintln(w, "Not signed in")
	}
	return 0
}

// runWhoami reports the stored session and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	a, done, err := openApp()
	if err != nil {
		printError(w, err)
		return 2
	}
	defer done()

	state := a.Bootstrap.State()
	if !whoamiOffline {
		state, err = a.Start(ctx)
		if err != nil {
			printError(w, err)
			return 2
		}
	}

	user := a.Session.CurrentUser()
	if IsJSONOutput() {
		fmt.Fprintln(w, formatWhoamiJSON(user, state))
	} else {
		fmt.Fprintln(w, formatWhoamiHuman(user, state))
	}

	if user == nil {
		return 1
	}
	return 0
}

func printSignedIn(w io.Writer, user *models.User, path string) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"user": user,
			"home": path,
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Signed in as %s (%s)\nHome: %s\n", user.FullName, user.Role, path)
}

// formatWhoamiHuman formats the session for human readability
func formatWhoamiHuman(user *models.User, state bootstrap.State) string {
	if user == nil {
		return "Not signed in"
	}
	return fmt.Sprintf(`Name:     %s
Email:    %s
Role:     %s
Home:     %s
Session:  %s`, user.FullName, user.Email, user.Role, route.DefaultPath(user.Role), state)
}

// formatWhoamiJSON formats the session as JSON
func formatWhoamiJSON(user *models.User, state bootstrap.State) string {
	output := map[string]interface{}{
		"authenticated": user != nil,
		"session":       state.String(),
	}
	if user != nil {
		output["user"] = user
		output["home"] = route.DefaultPath(user.Role)
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
