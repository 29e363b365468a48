// Package main implements modfetch's command-line entrypoint: a cobra
// root command with add/start/pause/resume/cancel/status/tui
// subcommands, grounded on Tanq16-danzo/cmd/root.go's flag-heavy
// single-binary cobra layout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/arjunv/modfetch/internal/config"
	"github.com/arjunv/modfetch/internal/filemanager"
	"github.com/arjunv/modfetch/internal/httpclient"
	"github.com/arjunv/modfetch/internal/logger"
	"github.com/arjunv/modfetch/internal/moderator"
	"github.com/arjunv/modfetch/internal/taskstore"
)

// modfetchVersion is overridden at build time via -ldflags.
var modfetchVersion = "dev"

var (
	flagDebug          bool
	flagLogFile        string
	flagDBPath         string
	flagDownloadDir    string
	flagTempDir        string
	flagMaxWorkers     int
	flagMaxChunks      int
	flagMaxConns       int
	flagMinChunkLength int64
)

var rootCmd = &cobra.Command{
	Use:     "modfetch",
	Short:   "modfetch is a concurrent, resumable, multi-connection file downloader",
	Version: modfetchVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "path to write logs to (stderr if empty)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the task store database file")
	rootCmd.PersistentFlags().StringVar(&flagDownloadDir, "dir", "", "directory new downloads are written to")
	rootCmd.PersistentFlags().StringVar(&flagTempDir, "temp-dir", "", "directory used for chunk spill files")
	rootCmd.PersistentFlags().IntVar(&flagMaxWorkers, "max-workers", 0, "global cap on concurrent chunk/merge workers (0 = use config default)")
	rootCmd.PersistentFlags().IntVar(&flagMaxChunks, "max-chunks", 0, "default max chunks per new task (0 = use config default)")
	rootCmd.PersistentFlags().IntVar(&flagMaxConns, "max-conns", 0, "default max parallel connections per task (0 = use config default)")
	rootCmd.PersistentFlags().Int64Var(&flagMinChunkLength, "min-chunk-length", 0, "minimum chunk size in bytes before splitting stops (0 = use config default)")

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTUICmd())
}

// loadConfig overlays persistent flags onto the YAML+defaults config, the
// way internal/config.GetConfig overlays stdlib flag values, but sourced
// from cobra/pflag instead so the two flag parsers never both touch
// os.Args.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = flagDebug
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = flagLogFile
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if cmd.Flags().Changed("dir") {
		cfg.DownloadDir = flagDownloadDir
	}
	if cmd.Flags().Changed("temp-dir") {
		cfg.TempDir = flagTempDir
	}
	if cmd.Flags().Changed("max-workers") {
		cfg.MaxWorkers = flagMaxWorkers
	}
	if cmd.Flags().Changed("max-chunks") {
		cfg.MaxChunks = flagMaxChunks
	}
	if cmd.Flags().Changed("max-conns") {
		cfg.MaxParallelConns = flagMaxConns
	}
	if cmd.Flags().Changed("min-chunk-length") {
		cfg.MinChunkLength = flagMinChunkLength
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// app bundles the wired collaborators a subcommand needs, plus a Close
// that releases the Moderator (which also closes the task store it
// owns) and the log file.
type app struct {
	cfg *config.Config
	mod *moderator.Moderator
}

func (a *app) Close() error {
	a.mod.Release()
	return logger.Close()
}

// newApp wires config, logger, task store, HTTP client, file manager and
// Moderator together, the way cmd/main.go's teacher bootstrap wired
// engine.New's collaborators, generalized to the Moderator's narrower
// constructor.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := logger.InitLogging(cfg.Debug, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	for _, dir := range []string{cfg.TempDir, cfg.DownloadDir, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	store, err := taskstore.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}

	httpCfg := httpclient.DefaultConfig()
	client := httpclient.New(httpCfg)

	files, err := filemanager.New(afero.NewOsFs(), cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("creating file manager: %w", err)
	}

	mod, err := moderator.New(store, client, files, moderator.Config{
		MaxWorkers:     cfg.MaxWorkers,
		MinChunkLength: cfg.MinChunkLength,
	})
	if err != nil {
		return nil, fmt.Errorf("creating moderator: %w", err)
	}

	return &app{cfg: cfg, mod: mod}, nil
}
