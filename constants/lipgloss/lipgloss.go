package lipgloss

import "github.com/charmbracelet/lipgloss"

// Define styles using lipgloss
var (
	Red     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Render
	Green   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Render
	Yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")).Render
	BlueSky = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Render
	Gray    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9399B2")).Render
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")).Render

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)
)
