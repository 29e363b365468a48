package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "list every known task and its progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks := a.mod.ListTasks()
			if len(tasks) == 0 {
				fmt.Println("no tasks")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tDOWNLOADED\tTOTAL\tURL")

			for _, t := range tasks {
				var downloaded int64
				for _, c := range a.mod.ChunksOf(t.ID) {
					downloaded += c.Downloaded()
				}

				total, known := t.TotalLength()
				totalLabel := "unknown"
				if known {
					totalLabel = fmt.Sprintf("%d", total)
				}

				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", t.ID, t.Status(), downloaded, totalLabel, t.URL)
			}

			return w.Flush()
		},
	}
}
