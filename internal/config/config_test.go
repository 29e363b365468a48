package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"

	"github.com/arjunv/modfetch/internal/config"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
}

func mockXDG(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	oldConfigHome := xdg.ConfigHome
	xdg.ConfigHome = tmpDir

	t.Cleanup(func() {
		xdg.ConfigHome = oldConfigHome
	})

	configDir := filepath.Join(tmpDir, "modfetch")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}

	return configDir
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.MaxWorkers != 8 {
		t.Errorf("expected MaxWorkers 8, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxChunks != 8 {
		t.Errorf("expected MaxChunks 8, got %d", cfg.MaxChunks)
	}
	if cfg.MinChunkLength != 1<<20 {
		t.Errorf("expected MinChunkLength 1MiB, got %d", cfg.MinChunkLength)
	}
}

func TestGetConfig_Integration(t *testing.T) {
	t.Run("No Config File Returns Defaults", func(t *testing.T) {
		mockXDG(t)
		resetFlags()

		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		cfg, err := config.GetConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxWorkers != 8 {
			t.Errorf("expected defaults when file missing, got %d", cfg.MaxWorkers)
		}
	})

	t.Run("Empty Config File Returns Defaults", func(t *testing.T) {
		configDir := mockXDG(t)
		resetFlags()

		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := config.GetConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxWorkers != 8 {
			t.Errorf("expected defaults when file empty")
		}
	})

	t.Run("Valid Config File Overrides Defaults", func(t *testing.T) {
		configDir := mockXDG(t)
		resetFlags()

		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		yamlContent := `
maxWorkers: 16
maxParallelConns: 6
`
		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yamlContent), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := config.GetConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxWorkers != 16 {
			t.Errorf("expected MaxWorkers 16, got %d", cfg.MaxWorkers)
		}
		if cfg.MaxParallelConns != 6 {
			t.Errorf("expected MaxParallelConns 6, got %d", cfg.MaxParallelConns)
		}
		if cfg.MaxChunks != 8 {
			t.Errorf("expected MaxChunks to remain default 8, got %d", cfg.MaxChunks)
		}
	})

	t.Run("Invalid YAML Content", func(t *testing.T) {
		configDir := mockXDG(t)
		resetFlags()

		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("maxWorkers:\n\tbad: true"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := config.GetConfig()
		if err == nil {
			t.Error("expected YAML unmarshal error, got nil")
		}
	})
}

func TestConfig_AutoCorrection(t *testing.T) {
	tests := []struct {
		name        string
		yamlContent string
	}{
		{name: "MaxChunks 0 becomes Default", yamlContent: "maxChunks: 0"},
		{name: "MinChunkLength 0 becomes Default", yamlContent: "minChunkLength: 0"},
		{name: "DownloadDir Empty stays Default", yamlContent: "downloadDir: \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configDir := mockXDG(t)
			resetFlags()

			oldArgs := os.Args
			os.Args = []string{"cmd"}
			defer func() { os.Args = oldArgs }()

			if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.GetConfig()
			if err != nil {
				t.Errorf("expected success (auto-corrected to default), got error: %v", err)
			}
			if cfg != nil && cfg.MaxChunks == 0 {
				t.Error("expected MaxChunks to be corrected to > 0")
			}
		})
	}
}

func TestConfig_Validation_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
	}{
		{name: "Flag Force MaxChunks 0", flags: []string{"-max-chunks", "0"}},
		{name: "Flag Force MaxParallelConns 0", flags: []string{"-max-conns", "0"}},
		{name: "Flag Force DownloadDir Empty", flags: []string{"-dir", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockXDG(t)
			resetFlags()

			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()
			os.Args = append([]string{"cmd"}, tt.flags...)

			_, err := config.GetConfig()
			if err != config.ErrInvalidConfig {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGetConfig_Flags_OverrideFile(t *testing.T) {
	configDir := mockXDG(t)
	resetFlags()

	os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("maxWorkers: 5\n"), 0o644)

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "-max-workers", "50"}

	cfg, err := config.GetConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxWorkers != 50 {
		t.Errorf("flag value should overwrite config file. Expected 50, got %d", cfg.MaxWorkers)
	}
}

func TestGetConfig_Flags_NoFile(t *testing.T) {
	mockXDG(t)
	resetFlags()

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "-max-workers", "50"}

	cfg, err := config.GetConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxWorkers != 50 {
		t.Errorf("flag value should be applied even if config file is missing. Expected 50, got %d", cfg.MaxWorkers)
	}
}

func TestGetConfig_PartialFlags(t *testing.T) {
	configDir := mockXDG(t)
	resetFlags()

	os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("maxWorkers: 15\n"), 0o644)

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "-max-chunks", "99"}

	cfg, err := config.GetConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MaxWorkers != 15 {
		t.Errorf("expected config file value 15 to persist, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxChunks != 99 {
		t.Errorf("expected flag value 99, got %d", cfg.MaxChunks)
	}
}
