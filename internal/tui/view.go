package tui

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/tui/components"
	"github.com/arjunv/modfetch/internal/tui/styles"
)

func (m Model) View() string {
	if m.quitting {
		return "shutting down modfetch...\n"
	}

	contentWidth := m.width - 4
	if contentWidth > 90 {
		contentWidth = 90
	}
	if contentWidth < 40 {
		contentWidth = 40
	}

	var content string
	switch m.activeView {
	case listView:
		content = m.renderListView(contentWidth)
	case addView:
		content = m.renderAddView(contentWidth)
	case confirmCancelView:
		content = m.confirmDialog.View()
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) rowsForDisplay() []components.Row {
	rows := make([]components.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = components.Row{
			ID:         r.id,
			Name:       filepath.Base(r.dest),
			Status:     r.status,
			Message:    r.message,
			Downloaded: r.downloaded,
			Total:      r.total,
			Speed:      r.speed,
			Spin:       r.spinner.View(),
		}
	}
	return rows
}

func (m Model) renderListView(width int) string {
	var s strings.Builder

	s.WriteString(styles.Header.Width(width).Render("modfetch"))
	s.WriteString("\n\n")

	listHeight := m.height - 10
	if listHeight < 5 {
		listHeight = 5
	}
	s.WriteString(components.RenderTaskList(m.rowsForDisplay(), m.selected, width, listHeight))

	if m.message.visible {
		s.WriteString("\n")
		s.WriteString(m.message.style.Render(m.message.message))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

func (m Model) renderAddView(width int) string {
	var s strings.Builder

	s.WriteString(styles.Header.Width(width).Render("Add Task"))
	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(renderAddForm(m.addURL.View(), width)))
	s.WriteString("\n\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}
