// ABOUTME: Tests for the login, register, logout and whoami commands
// ABOUTME: Runs each command against the mock backend and checks output and exit codes

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/markalston/equiplend/internal/bootstrap"
	"github.com/markalston/equiplend/internal/mockapi"
	"github.com/markalston/equiplend/internal/models"
)

func TestLoginCommand_Success(t *testing.T) {
	startBackend(t, mockapi.Options{})

	var buf bytes.Buffer
	exitCode := runLogin(context.Background(), &buf, mockapi.SeedAdminEmail, mockapi.SeedAdminPassword)

	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}
	if !strings.Contains(buf.String(), "Home: /admin") {
		t.Errorf("expected admin home in output, got %q", buf.String())
	}
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	startBackend(t, mockapi.Options{})

	var buf bytes.Buffer
	exitCode := runLogin(context.Background(), &buf, mockapi.SeedStudentEmail, "wrong")

	if exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
	if !strings.Contains(buf.String(), "Error:") {
		t.Error("expected error in output")
	}
}

func TestLoginCommand_RateLimited(t *testing.T) {
	startBackend(t, mockapi.Options{RateLimitAuth: 1})
	ctx := context.Background()

	var buf bytes.Buffer
	runLogin(ctx, &buf, mockapi.SeedStudentEmail, "wrong")

	buf.Reset()
	exitCode := runLogin(ctx, &buf, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	if exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
	if !strings.Contains(buf.String(), "retry in") {
		t.Errorf("expected retry hint, got %q", buf.String())
	}
}

func TestLoginCommand_Unreachable(t *testing.T) {
	isolate(t)
	apiURL = "http://127.0.0.1:1"

	var buf bytes.Buffer
	exitCode := runLogin(context.Background(), &buf, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	if exitCode != 2 {
		t.Errorf("expected exit code 2, got %d", exitCode)
	}
}

func TestWhoamiAfterLogin(t *testing.T) {
	startBackend(t, mockapi.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	if code := runLogin(ctx, &buf, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword); code != 0 {
		t.Fatalf("login failed: %s", buf.String())
	}

	buf.Reset()
	exitCode := runWhoami(ctx, &buf)

	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}
	if !strings.Contains(buf.String(), mockapi.SeedStudentEmail) {
		t.Error("expected email in output")
	}
	if !strings.Contains(buf.String(), "Session:  valid") {
		t.Errorf("expected verified session, got %q", buf.String())
	}
}

func TestWhoamiRevokedSession(t *testing.T) {
	backend := startBackend(t, mockapi.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	runLogin(ctx, &buf, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)
	student, _ := backend.Users().FindByEmail(mockapi.SeedStudentEmail)
	backend.Tokens().Revoke(student.ID)

	buf.Reset()
	if code := runWhoami(ctx, &buf); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}

	// the rejected token is gone even offline
	whoamiOffline = true
	defer func() { whoamiOffline = false }()
	buf.Reset()
	runWhoami(ctx, &buf)
	if !strings.Contains(buf.String(), "Not signed in") {
		t.Errorf("expected cleared session, got %q", buf.String())
	}
}

func TestWhoamiJSON(t *testing.T) {
	startBackend(t, mockapi.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	runLogin(ctx, &buf, mockapi.SeedAdminEmail, mockapi.SeedAdminPassword)

	jsonOutput = true
	buf.Reset()
	runWhoami(ctx, &buf)

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["authenticated"] != true {
		t.Error("expected authenticated true")
	}
	if parsed["home"] != "/admin" {
		t.Errorf("expected /admin home, got %v", parsed["home"])
	}
}

func TestLogoutCommand(t *testing.T) {
	startBackend(t, mockapi.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	runLogin(ctx, &buf, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	buf.Reset()
	if code := runLogout(&buf); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "Signed out") {
		t.Errorf("expected sign-out message, got %q", buf.String())
	}

	buf.Reset()
	runLogout(&buf)
	if !strings.Contains(buf.String(), "Not signed in") {
		t.Errorf("expected second logout to be a no-op, got %q", buf.String())
	}

	whoamiOffline = true
	defer func() { whoamiOffline = false }()
	buf.Reset()
	if code := runWhoami(ctx, &buf); code != 1 {
		t.Errorf("expected exit code 1 after logout, got %d", code)
	}
}

func TestRegisterCommand(t *testing.T) {
	startBackend(t, mockapi.Options{})

	var buf bytes.Buffer
	exitCode := runRegister(context.Background(), &buf, models.RegisterRequest{
		FullName: "Lena Park",
		Email:    "lena@uni.edu",
		Password: "secret1",
	})

	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, buf.String())
	}
	if !strings.Contains(buf.String(), "Home: /student/dashboard") {
		t.Errorf("expected student home, got %q", buf.String())
	}
}

func TestRegisterCommand_DuplicateEmail(t *testing.T) {
	startBackend(t, mockapi.Options{})

	var buf bytes.Buffer
	exitCode := runRegister(context.Background(), &buf, models.RegisterRequest{
		FullName: "Copy",
		Email:    mockapi.SeedStudentEmail,
		Password: "secret1",
	})

	if exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
}

func TestFormatWhoamiHuman(t *testing.T) {
	if got := formatWhoamiHuman(nil, bootstrap.Invalid); got != "Not signed in" {
		t.Errorf("unexpected output %q", got)
	}

	user := &models.User{ID: "u1", FullName: "Ada", Email: "ada@uni.edu", Role: models.RoleAdmin}
	output := formatWhoamiHuman(user, bootstrap.Unchecked)
	for _, want := range []string{"Ada", "ada@uni.edu", "admin", "/admin", "unchecked"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
