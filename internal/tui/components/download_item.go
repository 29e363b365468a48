// Package components renders individual task rows and the scrollable
// task list for the tui package, the way tdm's tui/components package
// separates per-item rendering from the top-level model — generalized
// from engine.DownloadInfo to this module's Row, a plain projection of a
// task's id/name/status/progress/speed that carries no Moderator
// dependency of its own.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/tui/styles"
)

// Row is the display-ready projection of one task, rebuilt by the tui
// package from its own taskRow state on every render.
type Row struct {
	ID         int64
	Name       string
	Status     model.TaskStatus
	Message    string
	Downloaded int64
	Total      int64 // -1 when not yet known
	Speed      int64
	Spin       string // current spinner frame, shown only while active
}

// TaskItem renders one task's three-line summary.
func TaskItem(r Row, width int, selected bool) string {
	name := r.Name
	const maxNameLen = 40
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	statusLabel := renderStatus(r)
	percent := percentOf(r)
	percentStr := "--"
	if r.Total > 0 {
		percentStr = fmt.Sprintf("%.1f%%", percent*100)
	}
	percentCol := lipgloss.NewStyle().Width(8).Align(lipgloss.Right).Render(percentStr)

	line1 := fmt.Sprintf("%-*s  %s  %s", maxNameLen, name, statusLabel, percentCol)
	line2 := progressBar(width-2, percent)

	sizeInfo := fmt.Sprintf("%s / %s", formatSize(r.Downloaded), totalLabel(r.Total))
	speedInfo := "--/s"
	if r.Status == model.StatusWaiting {
		speedInfo = formatSize(r.Speed) + "/s"
	}

	line3 := sizeInfo + "  " + speedInfo
	if r.Message != "" {
		line3 += "  " + r.Message
	}

	item := lipgloss.JoinVertical(lipgloss.Left, line1, line2, styles.ListItemStyle.Faint(true).Render(line3))

	if selected {
		return styles.SelectedItemStyle.Width(width).Render(item)
	}
	return styles.ListItemStyle.Width(width).Render(item)
}

func renderStatus(r Row) string {
	switch r.Status {
	case model.StatusWaiting:
		return styles.StatusActive.Render(strings.TrimSpace(r.Spin + " active"))
	case model.StatusMerging:
		return styles.StatusActive.Render("merging")
	case model.StatusFinished:
		return styles.StatusCompleted.Render("done")
	case model.StatusFailed:
		return styles.StatusFailed.Render("failed")
	default:
		return styles.StatusQueued.Render("idle")
	}
}

func percentOf(r Row) float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Downloaded) / float64(r.Total)
}

func progressBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	filled := int(float64(width) * percent)
	if filled > width {
		filled = width
	}
	empty := width - filled

	return styles.ProgressFilled.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmpty.Render(strings.Repeat("░", empty))
}

func totalLabel(total int64) string {
	if total < 0 {
		return "?"
	}
	return formatSize(total)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
