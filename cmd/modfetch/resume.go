package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "resume scheduling (the Moderator has no per-task suspend state, so this resumes every waiting task)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[0], err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.mod.GetTask(id); !ok {
				return fmt.Errorf("task %d not found", id)
			}

			a.mod.Start()
			fmt.Printf("resumed (task %d and every other waiting task are now eligible to spawn workers)\n", id)

			return nil
		},
	}
}
