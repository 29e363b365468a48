package tui

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/logger"
	imodel "github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/moderator"
	"github.com/arjunv/modfetch/internal/tui/styles"
)

// view identifies the active screen.
type view int

const (
	listView view = iota
	addView
	confirmCancelView
)

type messageModel struct {
	visible bool
	message string
	style   lipgloss.Style
	timer   *time.Timer
}

// taskRow is the TUI's own copy of a task's display state, refreshed by
// taskEventMsg as events arrive rather than polled from the Moderator.
type taskRow struct {
	id         int64
	url        string
	dest       string
	status     imodel.TaskStatus
	message    string
	downloaded int64
	total      int64 // -1 if unknown
	speed      int64
	spinner    spinner.Model
}

// Model is the bubbletea model driving the task list view.
type Model struct {
	mod *moderator.Moderator

	downloadDir string

	rows     []*taskRow
	selected int

	width, height int

	help help.Model
	keys keyMap

	activeView view

	addURL  textinput.Model
	spinner spinner.Model

	confirmDialog ConfirmDialogModel
	message       messageModel

	quitting bool
}

func newModel(mod *moderator.Moderator) Model {
	h := help.New()
	h.ShowAll = false

	input := textinput.New()
	input.Placeholder = "https://example.com/file.bin"
	input.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Green)

	return Model{
		mod:     mod,
		help:    h,
		keys:    newKeyMap(),
		addURL:  input,
		spinner: s,
		message: messageModel{
			style: lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(styles.Purple).
				Width(60).
				Align(lipgloss.Center),
		},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTasks(), spinner.Tick, tea.EnterAltScreen)
}

func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks := m.mod.ListTasks()
		rows := make([]*taskRow, 0, len(tasks))

		for _, t := range tasks {
			total, known := t.TotalLength()
			if !known {
				total = -1
			}

			s := spinner.New()
			s.Spinner = spinner.Dot
			s.Style = lipgloss.NewStyle().Foreground(styles.Green)

			var downloaded int64
			for _, c := range m.mod.ChunksOf(t.ID) {
				downloaded += c.Downloaded()
			}

			rows = append(rows, &taskRow{
				id: t.ID, url: t.URL, dest: t.Destination,
				status: t.Status(), message: t.Message(),
				downloaded: downloaded, total: total, spinner: s,
			})
		}

		return tasksLoadedMsg{rows: rows}
	}
}

type tasksLoadedMsg struct{ rows []*taskRow }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && m.activeView != addView {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.activeView {
		case listView:
			return m.updateListView(msg)
		case addView:
			return m.updateAddView(msg)
		case confirmCancelView:
			return m.updateConfirmView(msg)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tasksLoadedMsg:
		m.rows = msg.rows
		return m, nil

	case taskEventMsg:
		m.applyEvent(msg.event)
		return m, nil

	case taskAddedMsg:
		if msg.err != nil {
			m.showMessage(fmt.Sprintf("add failed: %v", msg.err), styles.Red)
			return m, nil
		}

		total, known := msg.task.TotalLength()
		if !known {
			total = -1
		}
		s := spinner.New()
		s.Spinner = spinner.Dot
		s.Style = lipgloss.NewStyle().Foreground(styles.Green)

		m.rows = append(m.rows, &taskRow{
			id: msg.task.ID, url: msg.task.URL, dest: msg.task.Destination,
			status: msg.task.Status(), total: total, spinner: s,
		})
		m.selected = len(m.rows) - 1
		m.activeView = listView
		m.showMessage(fmt.Sprintf("task %d added", msg.task.ID), styles.Green)

		return m, nil

	case errMsg:
		m.showMessage(msg.err.Error(), styles.Red)
		return m, nil

	case messageTimeoutMsg:
		m.message.visible = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		for _, r := range m.rows {
			if r.status == imodel.StatusWaiting {
				r.spinner, _ = r.spinner.Update(msg)
			}
		}

		return m, cmd
	}

	return m, nil
}

// applyEvent folds a Moderator event into the matching row. Events for a
// task that has no row yet are dropped; rows are only created by
// loadTasks and taskAddedMsg.
func (m *Model) applyEvent(e events.Event) {
	row := m.rowFor(e.TaskID)
	if row == nil {
		return
	}

	switch e.Kind {
	case events.ChunkProgress:
		row.downloaded = e.Progress
		row.total = e.Total
		row.speed = e.Speed
		row.status = e.Status
	case events.TaskFinished:
		row.status = e.Status
		row.speed = 0
	case events.TaskFailed:
		row.status = e.Status
		row.message = e.Message
		row.speed = 0
	case events.TaskStateChanged:
		row.status = e.Status
	}
}

func (m *Model) rowFor(id int64) *taskRow {
	for _, r := range m.rows {
		if r.id == id {
			return r
		}
	}
	return nil
}

func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Add):
		m.activeView = addView
		m.addURL.SetValue("")
		m.addURL.Focus()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if len(m.rows) > 0 {
			m.selected = min(m.selected+1, len(m.rows)-1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.rows) > 0 {
			m.selected = max(m.selected-1, 0)
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.mod.Pause()
		m.showMessage("paused", styles.Orange)
		return m, nil

	case key.Matches(msg, m.keys.Resume):
		m.mod.Start()
		m.showMessage("running", styles.Green)
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if len(m.rows) > 0 && m.selected < len(m.rows) {
			row := m.rows[m.selected]
			m.confirmDialog = ConfirmDialogModel{
				title:    "Cancel Task",
				message:  fmt.Sprintf("Cancel task %d (%s)?", row.id, row.url),
				targetID: row.id,
				width:    min(m.width-20, 60),
			}
			m.activeView = confirmCancelView
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateAddView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.activeView = listView
		m.addURL.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		raw := strings.TrimSpace(m.addURL.Value())
		m.activeView = listView
		m.addURL.Blur()

		if raw == "" {
			return m, nil
		}

		return m, addTask(m.mod, raw, m.downloadDir)

	default:
		var cmd tea.Cmd
		m.addURL, cmd = m.addURL.Update(msg)
		return m, cmd
	}
}

func (m Model) updateConfirmView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.activeView = listView
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.activeView = listView
		id := m.confirmDialog.targetID
		return m, func() tea.Msg {
			if err := m.mod.CancelTask(id); err != nil {
				return errMsg{err: err}
			}
			return nil
		}
	}

	return m, nil
}

func (m *Model) showMessage(msg string, color lipgloss.Color) {
	m.message.message = msg
	m.message.visible = true
	m.message.style = m.message.style.BorderForeground(color)

	if m.message.timer != nil {
		m.message.timer.Stop()
	}

	if program != nil {
		m.message.timer = time.AfterFunc(3*time.Second, func() {
			program.Send(messageTimeoutMsg{})
		})
	}
}

func addTask(mod *moderator.Moderator, rawURL, downloadDir string) tea.Cmd {
	return func() tea.Msg {
		dest := filepath.Join(downloadDir, destFilename(rawURL))

		task, err := mod.AddTask(rawURL, dest, imodel.TaskOptions{})
		if err != nil {
			logger.Errorf("failed to add task for %s: %v", rawURL, err)
		}

		return taskAddedMsg{task: task, err: err}
	}
}

// destFilename derives a destination filename from the URL's final path
// segment, falling back to "download" for paths with none.
func destFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}

	return name
}
