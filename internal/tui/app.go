// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Screens are routes; every screen change goes through the route authorizer

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/equiplend/internal/app"
	"github.com/markalston/equiplend/internal/bootstrap"
	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/route"
	"github.com/markalston/equiplend/internal/session"
	"github.com/markalston/equiplend/internal/tui/forms"
	"github.com/markalston/equiplend/internal/tui/icons"
	"github.com/markalston/equiplend/internal/tui/recent"
	"github.com/markalston/equiplend/internal/tui/styles"
)

// Layout constants
const (
	minTerminalWidth = 80 // Minimum width before the frame stops shrinking
	navWidth         = 28 // Width of the navigation pane
	eventBuffer      = 32
)

// startedMsg is sent when startup verification completes
type startedMsg struct {
	state bootstrap.State
	err   error
}

// verifyStateMsg relays bootstrapper transitions
type verifyStateMsg struct {
	state bootstrap.State
}

// sessionMsg relays container transitions
type sessionMsg struct {
	event session.Event
}

// maintenanceMsg relays maintenance poll results
type maintenanceMsg struct {
	status models.MaintenanceStatus
	err    error
}

// notificationsMsg relays notification poll results
type notificationsMsg struct {
	list []models.Notification
	err  error
}

// authResultMsg is sent when a sign-in or registration finishes
type authResultMsg struct {
	email string
	path  string
	err   error
}

// markedReadMsg is sent when a notification was marked read
type markedReadMsg struct {
	err error
}

// App is the root model for the TUI
type App struct {
	app    *app.App
	ctx    context.Context
	recent *recent.Emails

	path    string
	width   int
	height  int
	started bool
	busy    bool // sign-in or registration outstanding
	verify  bootstrap.State
	spinner spinner.Model

	login    *forms.Login
	register *forms.Register
	cooldown timer.Model
	cooling  bool

	nav    []route.Route
	cursor int

	maintenance   models.MaintenanceStatus
	notifications []models.Notification
	selected      int
	lastUpdate    time.Time

	flash string
	err   error

	events chan tea.Msg
	unsubs []func()
}

// New creates the TUI model. Subscriptions are released by Close.
func New(ctx context.Context, a *app.App) *App {
	m := &App{
		app:     a,
		ctx:     ctx,
		recent:  recent.New(a.Config.ConfigDir),
		path:    route.Root,
		verify:  bootstrap.Unchecked,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary))),
		events:  make(chan tea.Msg, eventBuffer),
	}

	m.unsubs = append(m.unsubs,
		a.Session.Subscribe(func(e session.Event, _ session.Snapshot) {
			m.send(sessionMsg{event: e})
		}),
		a.Bootstrap.Subscribe(func(st bootstrap.State) {
			m.send(verifyStateMsg{state: st})
		}),
	)
	a.Maintenance.OnResult(func(v models.MaintenanceStatus, err error) {
		m.send(maintenanceMsg{status: v, err: err})
	})
	a.Notifications.OnResult(func(v []models.Notification, err error) {
		m.send(notificationsMsg{list: v, err: err})
	})
	return m
}

// send never blocks a publisher. Views read live session state and the
// guard re-resolves the screen on every update, so a dropped event only
// delays a repaint.
func (m *App) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// listen waits for the next relayed event
func (m *App) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Close releases subscriptions
func (m *App) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// Init implements tea.Model
func (m *App) Init() tea.Cmd {
	start := func() tea.Msg {
		st, err := m.app.Start(m.ctx)
		return startedMsg{state: st, err: err}
	}
	return tea.Batch(m.spinner.Tick, start, m.listen())
}

// Update implements tea.Model
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.guard())
}

func (m *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.forwardToForm(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return tea.Quit
		}
		return m.handleKey(msg)

	case startedMsg:
		m.started = true
		m.verify = msg.state
		if msg.err != nil {
			m.err = msg.err
		}
		m.app.StartPolling(m.ctx)
		return m.navigate(route.Root)

	case verifyStateMsg:
		m.verify = msg.state
		return tea.Batch(m.listen(), m.spinner.Tick)

	case sessionMsg:
		if msg.event == session.EventLoggedOut {
			m.notifications = nil
			m.selected = 0
		}
		return m.listen()

	case maintenanceMsg:
		if msg.err == nil {
			m.maintenance = msg.status
		}
		return m.listen()

	case notificationsMsg:
		if msg.err == nil {
			m.notifications = msg.list
			m.lastUpdate = time.Now()
			if m.selected >= len(m.notifications) {
				m.selected = 0
			}
		}
		return m.listen()

	case forms.LoginSubmittedMsg:
		return m.submitLogin(msg)

	case forms.RegisterSubmittedMsg:
		return m.submitRegister(msg)

	case forms.SwitchMsg:
		m.err = nil
		return m.navigate(msg.Path)

	case forms.CancelledMsg:
		return tea.Quit

	case authResultMsg:
		return m.handleAuthResult(msg)

	case markedReadMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return nil

	case spinner.TickMsg:
		if !m.spinning() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case timer.TickMsg, timer.StartStopMsg:
		var cmd tea.Cmd
		m.cooldown, cmd = m.cooldown.Update(msg)
		return cmd

	case timer.TimeoutMsg:
		if msg.ID == m.cooldown.ID() {
			m.cooling = false
		}
		return nil
	}

	// huh form internals
	return m.forwardToForm(msg)
}

// guard re-resolves the current screen against the live session. This is
// how a logout or a failed verification moves the user to the login screen.
func (m *App) guard() tea.Cmd {
	if !m.started {
		return nil
	}
	dest, _ := m.app.Navigate(m.path)
	if dest == m.path {
		return nil
	}
	return m.enter(dest)
}

// navigate asks the authorizer where path leads and shows that screen
func (m *App) navigate(path string) tea.Cmd {
	dest, _ := m.app.Navigate(path)
	return m.enter(dest)
}

func (m *App) enter(path string) tea.Cmd {
	m.path = path
	m.flash = ""

	switch path {
	case route.Login:
		m.register = nil
		m.login = forms.NewLogin(m.recent.Last())
		return m.login.Init()
	case route.Register:
		m.login = nil
		m.register = forms.NewRegister()
		return m.register.Init()
	}

	m.login, m.register = nil, nil
	role, _ := m.app.Session.UserRole()
	m.nav = route.ForRole(role)
	m.cursor = 0
	for i, r := range m.nav {
		if r.Path == path {
			m.cursor = i
		}
	}
	return nil
}

func (m *App) forwardToForm(msg tea.Msg) tea.Cmd {
	switch {
	case m.path == route.Login && m.login != nil:
		model, cmd := m.login.Update(msg)
		m.login = model.(*forms.Login)
		return cmd
	case m.path == route.Register && m.register != nil:
		model, cmd := m.register.Update(msg)
		m.register = model.(*forms.Register)
		return cmd
	}
	return nil
}

func (m *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if !m.started {
		if msg.String() == "q" {
			return tea.Quit
		}
		return nil
	}

	switch m.path {
	case route.Login, route.Register:
		if msg.String() == "ctrl+x" && m.cooling {
			m.app.Cooldown.Dismiss()
			return nil
		}
		if m.busy {
			return nil
		}
		return m.forwardToForm(msg)
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.nav)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.nav) {
			return m.navigate(m.nav[m.cursor].Path)
		}
	case "n":
		if len(m.notifications) > 0 {
			m.selected = (m.selected + 1) % len(m.notifications)
		}
	case "m":
		return m.markSelectedRead()
	case "r":
		m.err = nil
		if m.app.Bootstrap.Trigger(m.ctx) {
			m.flash = "Re-checking session"
		}
		return tea.Batch(m.spinner.Tick, m.poll())
	case "l":
		return m.enter(m.app.Logout())
	}
	return nil
}

func (m *App) submitLogin(msg forms.LoginSubmittedMsg) tea.Cmd {
	if m.app.Cooldown.Active() {
		return m.showCooldown()
	}
	m.busy = true
	m.err = nil
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		path, err := m.app.Login(m.ctx, msg.Email, msg.Password)
		return authResultMsg{email: msg.Email, path: path, err: err}
	})
}

func (m *App) submitRegister(msg forms.RegisterSubmittedMsg) tea.Cmd {
	if m.app.Cooldown.Active() {
		return m.showCooldown()
	}
	m.busy = true
	m.err = nil
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		path, err := m.app.Register(m.ctx, msg.Request)
		return authResultMsg{email: msg.Request.Email, path: path, err: err}
	})
}

func (m *App) handleAuthResult(msg authResultMsg) tea.Cmd {
	m.busy = false

	if msg.err != nil {
		var cmd tea.Cmd
		switch {
		case errors.Is(msg.err, client.ErrRateLimited), errors.Is(msg.err, app.ErrCoolingDown):
			cmd = m.showCooldown()
		default:
			m.err = msg.err
		}
		// a completed huh form cannot be edited again
		switch m.path {
		case route.Login:
			m.login = forms.NewLogin(msg.email)
			return tea.Batch(cmd, m.login.Init())
		case route.Register:
			m.register = forms.NewRegister()
			return tea.Batch(cmd, m.register.Init())
		}
		return cmd
	}

	m.err = nil
	m.recent.Add(msg.email)
	return tea.Batch(m.navigate(msg.path), m.poll())
}

// poll refreshes both pollers off the update loop. Results arrive through
// the relayed OnResult events.
func (m *App) poll() tea.Cmd {
	return func() tea.Msg {
		m.app.Maintenance.Poll(m.ctx)
		m.app.Notifications.Poll(m.ctx)
		return nil
	}
}

// showCooldown starts the countdown for the rate-limit notice
func (m *App) showCooldown() tea.Cmd {
	left := m.app.Cooldown.Remaining()
	if left <= 0 {
		return nil
	}
	m.cooling = true
	m.cooldown = timer.NewWithInterval(left, time.Second)
	return m.cooldown.Init()
}

func (m *App) markSelectedRead() tea.Cmd {
	if m.selected >= len(m.notifications) {
		return nil
	}
	n := m.notifications[m.selected]
	if n.Read {
		return nil
	}
	return func() tea.Msg {
		return markedReadMsg{err: m.app.MarkNotificationRead(m.ctx, n.ID)}
	}
}

func (m *App) spinning() bool {
	return !m.started || m.busy || m.verify == bootstrap.Verifying || m.verify == bootstrap.RetryScheduled
}

func (m *App) unread() int {
	n := 0
	for _, item := range m.notifications {
		if !item.Read {
			n++
		}
	}
	return n
}

// View implements tea.Model
func (m *App) View() string {
	var content string
	switch {
	case !m.started:
		content = m.spinner.View() + " Checking session..."
	case m.path == route.Login:
		content = m.viewLogin()
	case m.path == route.Register:
		content = m.viewRegister()
	default:
		content = m.viewGuarded()
	}

	if m.maintenance.MaintenanceMode {
		content = m.renderBanner() + "\n" + content
	}
	return m.wrapWithFrame(content)
}

func (m *App) viewLogin() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(icons.Lock.String() + " Sign in"))
	sb.WriteString("\n")
	if m.cooling && m.app.Cooldown.Visible() {
		sb.WriteString(m.renderCooldown())
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(styles.StatusCritical.Render(icons.Critical.String() + " " + m.err.Error()))
		sb.WriteString("\n\n")
	}
	if m.busy {
		sb.WriteString(m.spinner.View() + " Signing in...")
	} else if m.login != nil {
		sb.WriteString(m.login.View())
	}
	return styles.ActivePanel.Render(sb.String())
}

func (m *App) viewRegister() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(icons.Student.String() + " Create account"))
	sb.WriteString("\n")
	if m.cooling && m.app.Cooldown.Visible() {
		sb.WriteString(m.renderCooldown())
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(styles.StatusCritical.Render(icons.Critical.String() + " " + m.err.Error()))
		sb.WriteString("\n\n")
	}
	if m.busy {
		sb.WriteString(m.spinner.View() + " Creating account...")
	} else if m.register != nil {
		sb.WriteString(m.register.View())
	}
	return styles.ActivePanel.Render(sb.String())
}

func (m *App) renderCooldown() string {
	return styles.Notice.Render(fmt.Sprintf("%s Too many attempts. Try again in %s", icons.Warning.String(), m.cooldown.View()))
}

func (m *App) renderBanner() string {
	msg := m.maintenance.MaintenanceMessage
	if msg == "" {
		msg = "The system is under maintenance"
	}
	width := m.frameWidth() - 2
	return styles.Banner.Width(width).Render(icons.Warning.String() + " " + msg)
}

// viewGuarded renders the navigation pane next to the current page
func (m *App) viewGuarded() string {
	var nav strings.Builder
	for i, r := range m.nav {
		label := r.Title
		if i == m.cursor {
			nav.WriteString(styles.NavSelected.Render(label))
		} else {
			nav.WriteString(styles.NavItem.Render(label))
		}
		nav.WriteString("\n")
	}
	left := styles.Panel.Width(navWidth).Render(strings.TrimRight(nav.String(), "\n"))

	rightWidth := m.frameWidth() - navWidth - 8
	if rightWidth < 30 {
		rightWidth = 30
	}
	right := styles.ActivePanel.Width(rightWidth).Render(m.viewPage())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *App) viewPage() string {
	var sb strings.Builder

	title := m.path
	if r, ok := route.Lookup(m.path); ok && r.Title != "" {
		title = r.Title
	}
	sb.WriteString(styles.Title.Render(title))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(styles.StatusCritical.Render(icons.Critical.String() + " " + m.err.Error()))
		sb.WriteString("\n\n")
	}
	if m.flash != "" {
		sb.WriteString(styles.StatusOK.Render(m.flash))
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.viewVerification())
	sb.WriteString("\n\n")

	if u := m.app.Session.CurrentUser(); u != nil {
		sb.WriteString(styles.Subtitle.Render(fmt.Sprintf("Signed in as %s <%s>", u.FullName, u.Email)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.viewNotifications())
	return sb.String()
}

func (m *App) viewVerification() string {
	switch m.verify {
	case bootstrap.Valid:
		return styles.StatusOK.Render(icons.CheckOK.String() + " Session verified")
	case bootstrap.Verifying:
		return m.spinner.View() + " Verifying session..."
	case bootstrap.RetryScheduled:
		return m.spinner.View() + styles.StatusWarning.Render(" Rate limited, retrying shortly")
	case bootstrap.Invalid:
		return styles.StatusCritical.Render(icons.Critical.String() + " Session rejected")
	default:
		return styles.StatusWarning.Render(icons.Info.String() + " Session not yet verified")
	}
}

func (m *App) viewNotifications() string {
	var sb strings.Builder
	header := fmt.Sprintf("%s Notifications (%d unread)", icons.Bell.String(), m.unread())
	sb.WriteString(styles.ValueStyle.Render(header))
	sb.WriteString("\n")

	if len(m.notifications) == 0 {
		sb.WriteString(styles.Read.Render("  Nothing new"))
		return sb.String()
	}
	for i, n := range m.notifications {
		marker := "  "
		if i == m.selected {
			marker = styles.KeyStyle.Render("> ")
		}
		line := fmt.Sprintf("%s: %s", n.Title, n.Message)
		if n.Read {
			line = styles.Read.Render(line)
		} else {
			line = styles.Unread.Render(line)
		}
		sb.WriteString(marker + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *App) frameWidth() int {
	if m.width < minTerminalWidth {
		return minTerminalWidth
	}
	return m.width
}

// renderHeader creates the header bar with app branding and the signed-in user
func (m *App) renderHeader() string {
	width := m.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)

	leftRendered := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("EquipLend"))

	rightRendered := ""
	if u := m.app.Session.CurrentUser(); u != nil && m.app.Session.IsAuthenticated() {
		rightRendered = fmt.Sprintf(" %s %s ", u.FullName, styles.RoleBadge(u.Role))
	}

	fillWidth := width - 4 - lipgloss.Width(leftRendered) - lipgloss.Width(rightRendered) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}
	return borderStyle.Render("╭─") + leftRendered + borderStyle.Render(strings.Repeat("─", fillWidth)) + rightRendered + borderStyle.Render("─╮")
}

// shortcuts lists the keys for the current screen
func (m *App) shortcuts() []string {
	switch {
	case !m.started:
		return []string{"q Quit"}
	case m.path == route.Login:
		keys := []string{"Enter Submit", "ctrl+r Register", "Esc Quit"}
		if m.cooling {
			keys = append(keys, "ctrl+x Dismiss")
		}
		return keys
	case m.path == route.Register:
		return []string{"Enter Next", "Esc Back"}
	default:
		return []string{"↑↓ Navigate", "Enter Open", "n Next", "m Mark read", "r Refresh", "l Logout", "q Quit"}
	}
}

// renderFooter creates the footer with keyboard shortcuts and status
func (m *App) renderFooter() string {
	width := m.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	shortcuts := m.shortcuts()
	styled := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styled = append(styled, styles.KeyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styled = append(styled, s)
		}
	}
	leftText := " " + strings.Join(styled, "  ")
	leftPlain := " " + strings.Join(shortcuts, "  ")

	rightText, rightPlain := "", ""
	if !m.lastUpdate.IsZero() && m.path != route.Login && m.path != route.Register {
		elapsed := formatTimeSince(time.Since(m.lastUpdate))
		rightText = statusStyle.Render("Updated "+elapsed) + " "
		rightPlain = "Updated " + elapsed + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftPlain) - lipgloss.Width(rightPlain) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		fillWidth = 0
	}
	return borderStyle.Render("╰─") + leftText + borderStyle.Render(strings.Repeat("─", fillWidth)) + rightText + borderStyle.Render("─╯")
}

// formatTimeSince formats an elapsed duration in human-readable form
func formatTimeSince(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 5 {
			return "just now"
		}
		return fmt.Sprintf("%ds ago", secs)
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// wrapWithFrame wraps content with header and footer
func (m *App) wrapWithFrame(content string) string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())
	return sb.String()
}

// Run starts the TUI on the alternate screen and blocks until it exits
func Run(ctx context.Context, a *app.App) error {
	m := New(ctx, a)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
