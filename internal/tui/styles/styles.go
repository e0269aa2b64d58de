// ABOUTME: Shared lipgloss styles for consistent TUI appearance
// ABOUTME: Defines colors, borders, banners and text styles used across screens

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/equiplend/internal/models"
)

var (
	// Colors - Core palette
	Primary   = lipgloss.Color("#2563EB") // Blue
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB") // Light
	BgDark    = lipgloss.Color("#1F2937") // Dark gray

	// Colors - Role accents
	AdminAccent   = lipgloss.Color("#8B5CF6") // Purple
	StudentAccent = lipgloss.Color("#06B6D4") // Cyan
	Accent        = lipgloss.Color("#60A5FA") // Lighter blue for highlights

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginBottom(1)

	// Status indicators
	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	// Panels
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(1, 2)

	ActivePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Maintenance banner spans the content width
	Banner = lipgloss.NewStyle().
		Foreground(BgDark).
		Background(Warning).
		Bold(true).
		Padding(0, 1)

	// Notice is the dismissable rate-limit box
	Notice = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Warning).
		Foreground(Warning).
		Padding(0, 1)

	// Navigation entries
	NavItem = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)

	NavSelected = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true).
			PaddingLeft(1).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(Accent)

	// Unread notifications stand out
	Unread = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)

	Read = lipgloss.NewStyle().
		Foreground(Muted)

	// Help text
	Help = lipgloss.NewStyle().
		Foreground(Muted).
		MarginTop(1)

	// Key style for keyboard shortcuts
	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	// Value style for emphasized data
	ValueStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)
)

// RoleBadge renders the role as a colored tag
func RoleBadge(role models.Role) string {
	color := Muted
	switch role {
	case models.RoleAdmin:
		color = AdminAccent
	case models.RoleStudent:
		color = StudentAccent
	}
	return lipgloss.NewStyle().
		Foreground(BgDark).
		Background(color).
		Bold(true).
		Padding(0, 1).
		Render(string(role))
}
