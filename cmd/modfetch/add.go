package main

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arjunv/modfetch/internal/model"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> [dest]",
		Short: "register a new download task",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rawURL := args[0]

			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			if dest == "" {
				dest = filepath.Join(a.cfg.DownloadDir, destFilename(rawURL))
			} else if !filepath.IsAbs(dest) {
				dest = filepath.Join(a.cfg.DownloadDir, dest)
			}

			task, err := a.mod.AddTask(rawURL, dest, model.TaskOptions{
				MaxChunks:        a.cfg.MaxChunks,
				MaxParallelConns: a.cfg.MaxParallelConns,
			})
			if err != nil {
				return fmt.Errorf("adding task: %w", err)
			}

			fmt.Printf("task %d added: %s -> %s\n", task.ID, task.URL, task.Destination)

			return nil
		},
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
