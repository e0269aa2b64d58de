// ABOUTME: Sign-in and registration forms as bubbletea models
// ABOUTME: Wraps huh forms and reports submission, cancellation and screen switches as messages

package forms

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/route"
	"github.com/markalston/equiplend/internal/tui/styles"
)

// LoginSubmittedMsg carries completed sign-in credentials
type LoginSubmittedMsg struct {
	Email    string
	Password string
}

// RegisterSubmittedMsg carries a completed registration
type RegisterSubmittedMsg struct {
	Request models.RegisterRequest
}

// SwitchMsg asks the app to navigate to another public screen
type SwitchMsg struct {
	Path string
}

// CancelledMsg is sent when the user leaves a form with esc
type CancelledMsg struct{}

// MinPasswordLength matches the backend's registration rule
const MinPasswordLength = 6

func theme() *huh.Theme {
	t := huh.ThemeBase()

	gray := lipgloss.Color("#9CA3AF")
	red := lipgloss.Color("#F87171")

	t.Group.Title = lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		MarginBottom(1)
	t.Group.Description = lipgloss.NewStyle().
		Foreground(gray).
		MarginBottom(1)

	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(styles.Primary)
	t.Focused.Title = lipgloss.NewStyle().
		Foreground(styles.Accent).
		Bold(true)
	t.Focused.Description = lipgloss.NewStyle().
		Foreground(gray)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().
		Foreground(red).
		SetString(" *")
	t.Focused.ErrorMessage = lipgloss.NewStyle().
		Foreground(red)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().
		Foreground(styles.Primary)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().
		Foreground(gray)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().
		Foreground(styles.Primary)

	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(gray)

	return t
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if at := strings.Index(s, "@"); at < 1 || at == len(s)-1 {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func validateNewPassword(s string) error {
	if len(s) < MinPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// Login is the sign-in form
type Login struct {
	form     *huh.Form
	email    string
	password string
}

// NewLogin creates a sign-in form, prefilled with email when known
func NewLogin(email string) *Login {
	l := &Login{email: email}
	l.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@university.edu").
				Value(&l.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&l.password).
				Validate(validateRequired("password")),
		).Description("Use your EquipLend account"),
	).WithTheme(theme()).WithShowHelp(false)
	return l
}

// Email returns the current email value
func (l *Login) Email() string {
	return strings.TrimSpace(l.email)
}

// Init implements tea.Model
func (l *Login) Init() tea.Cmd {
	return l.form.Init()
}

// Update implements tea.Model
func (l *Login) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return l, func() tea.Msg { return CancelledMsg{} }
		case "ctrl+r":
			return l, func() tea.Msg { return SwitchMsg{Path: route.Register} }
		}
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	if l.form.State == huh.StateCompleted {
		submitted := LoginSubmittedMsg{Email: l.Email(), Password: l.password}
		return l, func() tea.Msg { return submitted }
	}
	return l, cmd
}

// View implements tea.Model
func (l *Login) View() string {
	return l.form.View()
}

// Register is the student self-registration form
type Register struct {
	form *huh.Form
	req  models.RegisterRequest
}

// NewRegister creates a registration form
func NewRegister() *Register {
	r := &Register{}
	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Full name").
				Value(&r.req.FullName).
				Validate(validateRequired("full name")),
			huh.NewInput().
				Title("Email").
				Placeholder("you@university.edu").
				Value(&r.req.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				Description("At least 6 characters").
				EchoMode(huh.EchoModePassword).
				Value(&r.req.Password).
				Validate(validateNewPassword),
		).Description("Step 1: Account"),
		huh.NewGroup(
			huh.NewInput().
				Title("Student ID").
				Value(&r.req.StudentID),
			huh.NewInput().
				Title("Phone").
				Value(&r.req.Phone),
			huh.NewInput().
				Title("Faculty").
				Value(&r.req.Faculty),
			huh.NewInput().
				Title("Class").
				Value(&r.req.Class),
		).Description("Step 2: Student details (optional)"),
	).WithTheme(theme()).WithShowHelp(false)
	return r
}

// Init implements tea.Model
func (r *Register) Init() tea.Cmd {
	return r.form.Init()
}

// Update implements tea.Model
func (r *Register) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return r, func() tea.Msg { return SwitchMsg{Path: route.Login} }
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		submitted := RegisterSubmittedMsg{Request: r.Request()}
		return r, func() tea.Msg { return submitted }
	}
	return r, cmd
}

// Request returns the trimmed registration payload
func (r *Register) Request() models.RegisterRequest {
	req := r.req
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Faculty = strings.TrimSpace(req.Faculty)
	req.Class = strings.TrimSpace(req.Class)
	return req
}

// View implements tea.Model
func (r *Register) View() string {
	return r.form.View()
}
