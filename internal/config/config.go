// Package config loads modfetch's configuration from an XDG-located YAML
// file, overlaid with CLI flags, the way tdm's internal/config.GetConfig
// does — generalized to the moderator's knobs (max workers, min chunk
// length, task store/spill locations) in place of tdm's HTTP+Torrent
// split.
package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const configFileName = "modfetch"

const (
	defaultMaxWorkers       = 8
	defaultMaxChunks        = 8
	defaultMaxParallelConns = 4
	defaultMinChunkLength   = 1 << 20 // 1 MiB
	defaultSaveInterval     = 30 * time.Second
)

// flagConfig stores the parsed values from the CLI flags.
type flagConfig struct {
	maxWorkers       *int
	maxChunks        *int
	maxParallelConns *int
	minChunkLength   *int64
	downloadDir      *string
	tempDir          *string
	dbPath           *string
	debug            *bool
	logFile          *string
}

// Config holds the application's configuration.
type Config struct {
	MaxWorkers       int           `yaml:"maxWorkers,omitempty"`
	MaxChunks        int           `yaml:"maxChunks,omitempty"`
	MaxParallelConns int           `yaml:"maxParallelConns,omitempty"`
	MinChunkLength   int64         `yaml:"minChunkLength,omitempty"`
	DownloadDir      string        `yaml:"downloadDir,omitempty"`
	TempDir          string        `yaml:"tempDir,omitempty"`
	DBPath           string        `yaml:"dbPath,omitempty"`
	SaveInterval     time.Duration `yaml:"saveInterval,omitempty"`
	Debug            bool          `yaml:"debug,omitempty"`
	LogFile          string        `yaml:"logFile,omitempty"`
}

// GetConfig reads the configuration file and returns a Config, overlaid
// with stdlib `flag`-parsed CLI values. Callers that parse their own
// flags (the cobra CLI uses pflag) should call Load instead, to avoid
// a second, conflicting flag.Parse over os.Args.
func GetConfig() (*Config, error) {
	conf, err := Load()
	if err != nil {
		return nil, err
	}

	conf.applyFlags()

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Load reads the configuration file and overlays it onto the defaults,
// without touching CLI flags. The returned Config is unvalidated so a
// caller can overlay its own flag values before calling Validate.
func Load() (*Config, error) {
	configFilePath := filepath.Join(xdg.ConfigHome, configFileName, "config.yaml")
	defaults := DefaultConfig()

	var cfg Config

	b, err := os.ReadFile(configFilePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}

	conf := Config{
		MaxWorkers:       zeroOr(cfg.MaxWorkers, defaults.MaxWorkers),
		MaxChunks:        zeroOr(cfg.MaxChunks, defaults.MaxChunks),
		MaxParallelConns: zeroOr(cfg.MaxParallelConns, defaults.MaxParallelConns),
		MinChunkLength:   zeroOr(cfg.MinChunkLength, defaults.MinChunkLength),
		DownloadDir:      zeroOr(cfg.DownloadDir, defaults.DownloadDir),
		TempDir:          zeroOr(cfg.TempDir, defaults.TempDir),
		DBPath:           zeroOr(cfg.DBPath, defaults.DBPath),
		SaveInterval:     zeroOr(cfg.SaveInterval, defaults.SaveInterval),
		Debug:            cfg.Debug,
		LogFile:          cfg.LogFile,
	}

	return &conf, nil
}

// Validate exposes the internal field range checks to callers (such as
// the cobra CLI) that build a Config without going through GetConfig.
func (c *Config) Validate() error {
	return c.validate()
}

func DefaultConfig() Config {
	return Config{
		MaxWorkers:       defaultMaxWorkers,
		MaxChunks:        defaultMaxChunks,
		MaxParallelConns: defaultMaxParallelConns,
		MinChunkLength:   defaultMinChunkLength,
		DownloadDir:      filepath.Join(xdg.UserDirs.Download),
		TempDir:          filepath.Join(xdg.CacheHome, configFileName, "spill"),
		DBPath:           filepath.Join(xdg.DataHome, configFileName, "modfetch.db"),
		SaveInterval:     defaultSaveInterval,
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}

func (c *Config) applyFlags() {
	fc := flagConfig{
		maxWorkers:       flag.Int("max-workers", c.MaxWorkers, "global cap on concurrent chunk/merge workers"),
		maxChunks:        flag.Int("max-chunks", c.MaxChunks, "default max chunks per new task"),
		maxParallelConns: flag.Int("max-conns", c.MaxParallelConns, "default max parallel connections per task"),
		minChunkLength:   flag.Int64("min-chunk-length", c.MinChunkLength, "minimum chunk size in bytes before splitting stops"),
		downloadDir:      flag.String("dir", c.DownloadDir, "directory new downloads are written to"),
		tempDir:          flag.String("temp-dir", c.TempDir, "directory used for chunk spill files"),
		dbPath:           flag.String("db", c.DBPath, "path to the task store database file"),
		debug:            flag.Bool("debug", c.Debug, "enable debug logging"),
		logFile:          flag.String("log-file", c.LogFile, "path to write logs to (stderr if empty)"),
	}

	flag.Parse()

	c.MaxWorkers = *fc.maxWorkers
	c.MaxChunks = *fc.maxChunks
	c.MaxParallelConns = *fc.maxParallelConns
	c.MinChunkLength = *fc.minChunkLength
	c.DownloadDir = *fc.downloadDir
	c.TempDir = *fc.tempDir
	c.DBPath = *fc.dbPath
	c.Debug = *fc.debug
	c.LogFile = *fc.logFile
}

func (c *Config) validate() error {
	if c.MaxWorkers < 0 || c.MaxChunks <= 0 || c.MaxParallelConns <= 0 || c.MinChunkLength <= 0 {
		return ErrInvalidConfig
	}

	if c.DownloadDir == "" || c.TempDir == "" || c.DBPath == "" {
		return ErrInvalidConfig
	}

	return nil
}
