package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/tui/styles"
)

// renderAddForm renders the add-task URL input box.
func renderAddForm(input string, width int) string {
	formWidth := width - 10
	if formWidth < 40 {
		formWidth = 40
	}

	return lipgloss.NewStyle().
		Width(formWidth).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Yellow).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				styles.FormLabel.Render("Enter URL to download:"),
				input,
				"",
				lipgloss.NewStyle().Foreground(styles.Fg2).Render("Press Enter to confirm or Esc to cancel"),
			),
		)
}
