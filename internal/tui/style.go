package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#15202b")).
			Background(lipgloss.Color("#5468ff")).
			Padding(0, 1)

	editHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5468ff")).
			Padding(0, 1)

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4f4f"))

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#5468ff", Dark: "#8f9bff"}).
				Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)
