// Package tui renders the Moderator's live task list with bubbletea, the
// way tdm's internal/tui wraps an engine.Engine — generalized from
// poll-based download stats to an event-driven model that registers a
// Listener with the Moderator's Event Dispatcher and forwards each
// events.Event into the running tea.Program as a tea.Msg.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/moderator"
)

// program is set once Run starts, so showMessage's notification timer
// can post a messageTimeoutMsg back into the running loop, the same
// pattern tdm's tui package uses for its own toast timer.
var program *tea.Program

// Message types forwarded into the bubbletea update loop.
type (
	// taskEventMsg wraps a raw Moderator event.
	taskEventMsg struct {
		event events.Event
	}

	// taskAddedMsg is sent after a successful add-task form submission.
	taskAddedMsg struct {
		task *model.Task
		err  error
	}

	// errMsg surfaces an error to the toast/message area.
	errMsg struct {
		err error
	}

	// messageTimeoutMsg clears the toast message area.
	messageTimeoutMsg struct{}
)

// Run starts the TUI against mod, registering an event listener for the
// lifetime of the program and unregistering it on exit. downloadDir is
// where the add-task form writes new destinations.
func Run(mod *moderator.Moderator, downloadDir string) error {
	m := newModel(mod)
	m.downloadDir = downloadDir

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	program = p

	handle := mod.RegisterListener(events.ListenerFunc(func(e events.Event) {
		p.Send(taskEventMsg{event: e})
	}), events.GoroutineExecutor{})
	defer mod.UnregisterListener(handle)

	_, err := p.Run()
	return err
}
