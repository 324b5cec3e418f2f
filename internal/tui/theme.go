package tui

import (
	"github.com/charmbracelet/lipgloss"

	"prview/internal/review"
	"prview/internal/table"
)

// Colors not covered by the table theme.
const (
	colorSuccess = "10"
	colorError   = "9"
	colorInfo    = "14"
	colorHelp    = "245"
)

// ResolveTheme maps a configured mode to a table theme. "auto" and "" follow
// the terminal background.
func ResolveTheme(mode string) table.Theme {
	switch mode {
	case "dark":
		return table.NewTheme(true)
	case "light":
		return table.NewTheme(false)
	default:
		return table.NewTheme(lipgloss.HasDarkBackground())
	}
}

// NotificationStyle is the style of a notification line.
func NotificationStyle(level review.Level) lipgloss.Style {
	switch level {
	case review.LevelSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	case review.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorInfo))
	}
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorInfo)).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorHelp))
)
