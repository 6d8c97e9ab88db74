package tui

import "github.com/charmbracelet/lipgloss"

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		StatusSuccess:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusRunning:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusSkipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusCanceled: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		StatusPending:  lipgloss.NewStyle().Faint(true),
	}

	levelStyles = map[Level]lipgloss.Style{
		LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
