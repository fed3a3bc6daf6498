package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Transcode.Resize {
		t.Error("resize should be enabled by default")
	}
	if !cfg.Transcode.AutoOrient {
		t.Error("auto_orient should be enabled by default")
	}
	if cfg.Transcode.Encoder != EncoderWASM {
		t.Errorf("Encoder = %q, want %q", cfg.Transcode.Encoder, EncoderWASM)
	}
	if cfg.Converter.FailFast {
		t.Error("fail_fast should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "dl")
	if err := os.Mkdir(downloads, 0755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "config.yaml")
	content := `output:
  downloads_dir: ` + downloads + `
transcode:
  resize: false
  encoder: LibWebP
converter:
  fail_fast: true
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Output.DownloadsDir != downloads {
		t.Errorf("DownloadsDir = %q, want %q", cfg.Output.DownloadsDir, downloads)
	}
	if cfg.Transcode.Resize {
		t.Error("resize should be disabled from file")
	}
	if !cfg.Transcode.AutoOrient {
		t.Error("auto_orient should keep its default")
	}
	if cfg.Transcode.Encoder != EncoderLibWebP {
		t.Errorf("Encoder = %q, want %q", cfg.Transcode.Encoder, EncoderLibWebP)
	}
	if !cfg.Converter.FailFast {
		t.Error("fail_fast should be enabled from file")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("transcode:\n  resize: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TOP_HAT_TRANSCODE_RESIZE", "false")
	t.Setenv("TOP_HAT_CONVERTER_FAIL_FAST", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Transcode.Resize {
		t.Error("env should disable resize")
	}
	if !cfg.Converter.FailFast {
		t.Error("env should enable fail_fast")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:     "unknown encoder",
			mutate:   func(c *Config) { c.Transcode.Encoder = "cwebp" },
			errorMsg: "invalid encoder",
		},
		{
			name:     "missing downloads dir",
			mutate:   func(c *Config) { c.Output.DownloadsDir = "/nonexistent-top-hat-downloads-12345" },
			errorMsg: "downloads_dir does not exist",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "invalid log level",
		},
		{
			name:     "bad port",
			mutate:   func(c *Config) { c.Server.Port = 70000 },
			errorMsg: "invalid server port",
		},
		{
			name:   "empty encoder falls back",
			mutate: func(c *Config) { c.Transcode.Encoder = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}
