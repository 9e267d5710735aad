package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/notify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func severityStyle(s analysis.Severity) lipgloss.Style {
	switch s {
	case analysis.SeverityHigh:
		return errorStyle
	case analysis.SeverityMedium:
		return warnStyle
	default:
		return successStyle
	}
}

func levelStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelSuccess:
		return successStyle
	case notify.LevelError:
		return errorStyle
	case notify.LevelWarning:
		return warnStyle
	default:
		return accentStyle
	}
}

func help(text string) string {
	return helpStyle.Render(text)
}
