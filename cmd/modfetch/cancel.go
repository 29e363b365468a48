package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "interrupt a task's workers, mark it failed and clear its registry entries",
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

			if err := a.mod.CancelTask(id); err != nil {
				return fmt.Errorf("cancelling task %d: %w", id, err)
			}

			fmt.Printf("task %d cancelled\n", id)

			return nil
		},
	}
}
