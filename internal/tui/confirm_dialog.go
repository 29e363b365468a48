package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/tui/styles"
)

// ConfirmDialogModel is a simple yes/no confirmation dialog, shown before
// cancelling a task.
type ConfirmDialogModel struct {
	title    string
	message  string
	targetID int64
	width    int
}

func (c ConfirmDialogModel) View() string {
	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Red).Width(c.width).Align(lipgloss.Center).Render(c.title))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.NewStyle().Foreground(styles.Yellow).Align(lipgloss.Center).Width(c.width).Render(c.message))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.NewStyle().Foreground(styles.Fg1).Align(lipgloss.Center).Width(c.width).Render("Press Enter to confirm or Esc to cancel"))

	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(styles.Red).Padding(1, 2).Render(s.String())
}
