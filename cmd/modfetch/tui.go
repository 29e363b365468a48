package main

import (
	"github.com/spf13/cobra"

	"github.com/arjunv/modfetch/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "run the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.mod.Start()

			return tui.Run(a.mod, a.cfg.DownloadDir)
		},
	}
}
