package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/logger"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "run the moderator in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			handle := a.mod.RegisterListener(events.ListenerFunc(logProgress), events.GoroutineExecutor{})
			defer a.mod.UnregisterListener(handle)

			a.mod.Start()
			fmt.Println("modfetch running, press Ctrl+C to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			fmt.Println("\nshutting down...")
			a.mod.Pause()

			return nil
		},
	}
}

// logProgress reports task lifecycle transitions at info level; the
// per-second ChunkProgress events are deliberately left at debug so a
// foreground "start" run without the TUI isn't spammed.
func logProgress(e events.Event) {
	switch e.Kind {
	case events.TaskAdded:
		logger.Infof("task %d added", e.TaskID)
	case events.TaskFinished:
		logger.Infof("task %d finished", e.TaskID)
	case events.TaskFailed:
		logger.Infof("task %d failed: %s", e.TaskID, e.Message)
	case events.ChunkProgress:
		logger.Debugf("task %d: %d/%d bytes at %d B/s", e.TaskID, e.Progress, e.Total, e.Speed)
	}
}
