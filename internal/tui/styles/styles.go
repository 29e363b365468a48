// Package styles holds the lipgloss color palette and reusable styles
// shared by the tui package and its components subpackage, the way
// tdm's tui/styles package centralizes theme constants away from model
// and view logic.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	Bg0 = lipgloss.Color("#282828")
	Bg1 = lipgloss.Color("#3c3836")
	Bg2 = lipgloss.Color("#504945")
	Fg0 = lipgloss.Color("#fbf1c7")
	Fg1 = lipgloss.Color("#ebdbb2")
	Fg2 = lipgloss.Color("#d5c4a1")

	Red    = lipgloss.Color("#fb4934")
	Green  = lipgloss.Color("#b8bb26")
	Yellow = lipgloss.Color("#fabd2f")
	Blue   = lipgloss.Color("#83a598")
	Purple = lipgloss.Color("#d3869b")
	Aqua   = lipgloss.Color("#8ec07c")
	Orange = lipgloss.Color("#fe8019")
	Mauve  = Purple
	Peach  = Orange

	Text     = Fg1
	Subtext0 = Fg2
)

var (
	App = lipgloss.NewStyle().Background(Bg0).Foreground(Fg1)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Yellow).
		Background(Bg1).
		Padding(1, 2).
		Align(lipgloss.Center)

	ListItemStyle = lipgloss.NewStyle().Padding(0, 1)

	SelectedItemStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Yellow).
				Padding(0, 1)

	ProgressFilled = lipgloss.NewStyle().Foreground(Green)
	ProgressEmpty  = lipgloss.NewStyle().Foreground(Bg2)

	StatusActive    = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusQueued    = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	StatusPaused    = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	StatusCompleted = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	StatusFailed    = lipgloss.NewStyle().Foreground(Red).Bold(true)
	StatusCancelled = StatusFailed

	FormLabel = lipgloss.NewStyle().Foreground(Fg0).MarginRight(1)
	FormInput = lipgloss.NewStyle().Foreground(Fg1).Background(Bg1).Padding(0, 1)

	Help    = lipgloss.NewStyle().Foreground(Fg2)
	HelpKey = lipgloss.NewStyle().Foreground(Yellow).Bold(true)

	Error = lipgloss.NewStyle().
		Foreground(Bg0).
		Background(Red).
		Padding(0, 1).
		Margin(1, 0).
		Align(lipgloss.Center)
)
