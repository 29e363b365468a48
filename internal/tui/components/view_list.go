package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/tui/styles"
)

// RenderTaskList renders the scrollable task list, or the empty-state
// splash screen when rows is empty.
func RenderTaskList(rows []Row, selected, width, height int) string {
	if len(rows) == 0 {
		return renderEmptyView(width, height)
	}

	itemHeight := 4
	visibleCount := height / itemHeight
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := selected - visibleCount/2
	if start < 0 {
		start = 0
	}
	end := start + visibleCount
	if end > len(rows) {
		end = len(rows)
	}

	var list []string
	for i := start; i < end; i++ {
		list = append(list, TaskItem(rows[i], width-4, i == selected))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, list...)

	if start > 0 {
		content = lipgloss.JoinVertical(lipgloss.Top,
			lipgloss.NewStyle().Foreground(styles.Subtext0).Align(lipgloss.Center).Width(width).Render("↑ more above"),
			content)
	}
	if end < len(rows) {
		content = lipgloss.JoinVertical(lipgloss.Bottom, content,
			lipgloss.NewStyle().Foreground(styles.Subtext0).Align(lipgloss.Center).Width(width).Render("↓ more below"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

func renderEmptyView(width, height int) string {
	logo := []string{
		"█▀▄▀█ █▀█ █▀▄ █▀▀ █▀▀ ▀█▀ █▀▀ █░█",
		"█░▀░█ █▄█ █▄▀ █▀░ █▀░ ░█░ █▄▄ █▀█",
	}
	colors := []lipgloss.Color{styles.Blue, styles.Green}

	var lines []string
	for i, line := range logo {
		lines = append(lines, lipgloss.NewStyle().Foreground(colors[i%len(colors)]).Bold(true).Render(line))
	}

	subtitle := lipgloss.NewStyle().Foreground(styles.Text).Italic(true).Render("resumable, multi-connection downloads")
	instruction := lipgloss.NewStyle().Foreground(styles.Subtext0).Render("Press 'a' to add a download or 'q' to quit")

	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	content = lipgloss.JoinVertical(lipgloss.Center, content, "", subtitle, "", instruction)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
