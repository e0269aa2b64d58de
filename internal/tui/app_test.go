// ABOUTME: Integration tests for the TUI root model
// ABOUTME: Tests screen guarding, sign-in results, cooldown notice, banner and notifications

package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"

	"github.com/markalston/equiplend/internal/app"
	"github.com/markalston/equiplend/internal/bootstrap"
	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/config"
	"github.com/markalston/equiplend/internal/mockapi"
	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/route"
	"github.com/markalston/equiplend/internal/session"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	backend, err := mockapi.New(mockapi.Options{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(backend.Router())

	a, err := app.New(&config.Config{
		APIURL:                   ts.URL,
		HTTPTimeout:              5 * time.Second,
		ConfigDir:                t.TempDir(),
		Store:                    "memory",
		VerifyTimeout:            2 * time.Second,
		RetryDelay:               50 * time.Millisecond,
		InvalidateOnNetworkError: true,
		RateLimitCooldown:        time.Minute,
		MaintenanceInterval:      time.Hour,
		NotificationInterval:     time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		a.Close()
		ts.Close()
		backend.Close()
	})
	return a
}

func newModel(t *testing.T) (*App, *app.App) {
	t.Helper()
	a := newTestApp(t)
	m := New(context.Background(), a)
	t.Cleanup(m.Close)
	m.width = 120
	m.height = 40
	return m, a
}

func signIn(t *testing.T, m *App, a *app.App, email, password string) {
	t.Helper()
	m.Update(startedMsg{state: bootstrap.Invalid})
	path, err := a.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	m.Update(authResultMsg{email: email, path: path})
}

func TestAppInitialState(t *testing.T) {
	m, _ := newModel(t)

	if m.started {
		t.Error("expected model to wait for verification")
	}
	if !strings.Contains(m.View(), "Checking session") {
		t.Error("expected splash while verifying")
	}
}

func TestStartedWithoutSessionShowsLogin(t *testing.T) {
	m, _ := newModel(t)

	m.Update(startedMsg{state: bootstrap.Invalid})

	if m.path != route.Login {
		t.Fatalf("expected %s, got %s", route.Login, m.path)
	}
	if m.login == nil {
		t.Fatal("expected login form")
	}
	if !strings.Contains(m.View(), "Sign in") {
		t.Error("expected sign-in form in view")
	}
}

func TestSignInLandsOnRoleHome(t *testing.T) {
	tests := []struct {
		email    string
		password string
		want     string
		navItem  string
	}{
		{mockapi.SeedAdminEmail, mockapi.SeedAdminPassword, route.AdminHome, "Borrow requests"},
		{mockapi.SeedStudentEmail, mockapi.SeedStudentPassword, route.StudentDashboard, "Borrow history"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			m, a := newModel(t)
			signIn(t, m, a, tt.email, tt.password)

			if m.path != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, m.path)
			}
			view := m.View()
			if !strings.Contains(view, tt.navItem) {
				t.Errorf("expected nav item %q in view", tt.navItem)
			}
			if m.recent.Last() != tt.email {
				t.Errorf("expected %s remembered, got %q", tt.email, m.recent.Last())
			}
		})
	}
}

func TestStudentCannotOpenAdminScreens(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	m.navigate("/admin/settings")
	if m.path != route.StudentDashboard {
		t.Errorf("expected bounce to %s, got %s", route.StudentDashboard, m.path)
	}
}

func TestNavigationKeys(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedAdminEmail, mockapi.SeedAdminPassword)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.path == route.AdminHome {
		t.Fatal("expected enter to open the next admin screen")
	}
	if r, ok := route.Lookup(m.path); !ok || r.Role != models.RoleAdmin {
		t.Errorf("expected an admin screen, got %s", m.path)
	}
}

func TestLogoutKeyReturnsToLogin(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})

	if m.path != route.Login {
		t.Errorf("expected %s, got %s", route.Login, m.path)
	}
	if a.Session.IsAuthenticated() {
		t.Error("expected session cleared")
	}
}

func TestExternalLogoutIsGuarded(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedAdminEmail, mockapi.SeedAdminPassword)

	// e.g. a failed background verification
	a.Session.Logout()
	m.Update(sessionMsg{event: session.EventLoggedOut})

	if m.path != route.Login {
		t.Errorf("expected guard to move to %s, got %s", route.Login, m.path)
	}
	if len(m.notifications) != 0 {
		t.Error("expected notifications cleared on logout")
	}
}

func TestRateLimitShowsCooldown(t *testing.T) {
	m, a := newModel(t)
	m.Update(startedMsg{state: bootstrap.Invalid})

	a.Cooldown.Start()
	m.Update(authResultMsg{email: "a@x.com", err: &client.APIError{StatusCode: http.StatusTooManyRequests}})

	if !m.cooling {
		t.Fatal("expected cooldown notice")
	}
	if !strings.Contains(m.View(), "Too many attempts") {
		t.Error("expected cooldown notice in view")
	}
	if m.login == nil || m.login.Email() != "a@x.com" {
		t.Error("expected login form rebuilt with the email")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	if strings.Contains(m.View(), "Too many attempts") {
		t.Error("expected notice dismissed")
	}
	if !a.Cooldown.Active() {
		t.Error("dismissing must not end the cooldown")
	}
}

func TestAuthErrorShown(t *testing.T) {
	m, _ := newModel(t)
	m.Update(startedMsg{state: bootstrap.Invalid})

	m.Update(authResultMsg{email: "a@x.com", err: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}})

	if !strings.Contains(m.View(), "Invalid email or password") {
		t.Error("expected backend message in view")
	}
	if m.cooling {
		t.Error("plain rejection must not start a cooldown")
	}
}

func TestMaintenanceBanner(t *testing.T) {
	m, _ := newModel(t)
	m.Update(startedMsg{state: bootstrap.Invalid})

	m.Update(maintenanceMsg{status: models.MaintenanceStatus{MaintenanceMode: true, MaintenanceMessage: "Inventory audit"}})
	if !strings.Contains(m.View(), "Inventory audit") {
		t.Error("expected maintenance banner")
	}

	// a failed poll keeps the last status
	m.Update(maintenanceMsg{err: client.ErrUnreachable})
	if !strings.Contains(m.View(), "Inventory audit") {
		t.Error("expected banner to survive a failed poll")
	}

	m.Update(maintenanceMsg{status: models.MaintenanceStatus{}})
	if strings.Contains(m.View(), "Inventory audit") {
		t.Error("expected banner cleared")
	}
}

func TestNotificationsView(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	m.Update(notificationsMsg{list: []models.Notification{
		{ID: "n1", Title: "Approved", Message: "Camera ready for pickup"},
		{ID: "n2", Title: "Reminder", Message: "Return the tripod", Read: true},
	}})

	view := m.View()
	if !strings.Contains(view, "1 unread") {
		t.Error("expected unread count")
	}
	if !strings.Contains(view, "Camera ready for pickup") {
		t.Error("expected notification message")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.selected != 1 {
		t.Errorf("expected selection to advance, got %d", m.selected)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}); cmd != nil {
		t.Error("expected no request for an already read notification")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.selected != 0 {
		t.Errorf("expected selection to wrap, got %d", m.selected)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}); cmd == nil {
		t.Error("expected a mark-read request for an unread notification")
	}
}

func TestVerificationStatus(t *testing.T) {
	m, a := newModel(t)
	signIn(t, m, a, mockapi.SeedStudentEmail, mockapi.SeedStudentPassword)

	tests := []struct {
		state bootstrap.State
		want  string
	}{
		{bootstrap.Valid, "Session verified"},
		{bootstrap.Verifying, "Verifying session"},
		{bootstrap.RetryScheduled, "retrying shortly"},
		{bootstrap.Unchecked, "not yet verified"},
	}
	for _, tt := range tests {
		m.Update(verifyStateMsg{state: tt.state})
		if !strings.Contains(m.View(), tt.want) {
			t.Errorf("state %s: expected %q in view", tt.state, tt.want)
		}
	}
}

func TestFormatTimeSince(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{2 * time.Second, "just now"},
		{30 * time.Second, "30s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
	}
	for _, tt := range tests {
		if got := formatTimeSince(tt.d); got != tt.want {
			t.Errorf("formatTimeSince(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
