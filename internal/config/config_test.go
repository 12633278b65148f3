package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MIMI_TEST_TOKEN", "tok-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
telegram:
  bot_token: ${MIMI_TEST_TOKEN}
providers:
  default: ollama
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.BotToken != "tok-123" {
		t.Errorf("bot token = %q, want tok-123", cfg.Telegram.BotToken)
	}
	if cfg.Providers.Default != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.Providers.Default)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  bot_token: x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.History.WindowMessages != 40 {
		t.Errorf("window = %d, want 40", cfg.History.WindowMessages)
	}
	if cfg.History.KeepLast != 100 {
		t.Errorf("keep_last = %d, want 100", cfg.History.KeepLast)
	}
	if cfg.History.MaxSteps != 10 {
		t.Errorf("max_steps = %d, want 10", cfg.History.MaxSteps)
	}
	if cfg.Providers.Ollama.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("ollama base url = %q", cfg.Providers.Ollama.BaseURL)
	}
	if cfg.ShellExec.DefaultTimeoutSec != 30 {
		t.Errorf("shell timeout = %d, want 30", cfg.ShellExec.DefaultTimeoutSec)
	}
}

func TestLoadExpandsHomePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
telegram:
  bot_token: x
data_dir: ~/mimi-data
workspace:
  path: ~/ws
personas:
  - name: assistant
    identity_file: ~/identity.md
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != filepath.Join(home, "mimi-data") {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Workspace.Path != filepath.Join(home, "ws") {
		t.Errorf("workspace = %q", cfg.Workspace.Path)
	}
	if cfg.Personas[0].IdentityFile != filepath.Join(home, "identity.md") {
		t.Errorf("identity_file = %q", cfg.Personas[0].IdentityFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid anthropic",
			mutate:  func(c *Config) { c.Providers.Anthropic.APIKey = "sk-test" },
			wantErr: false,
		},
		{
			name:    "missing bot token",
			mutate:  func(c *Config) { c.Telegram.BotToken = "" },
			wantErr: true,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Providers.Default = "mystery" },
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.Providers.Anthropic.APIKey = "" },
			wantErr: true,
		},
		{
			name: "ollama needs no key",
			mutate: func(c *Config) {
				c.Providers.Default = "ollama"
				c.Providers.Anthropic.APIKey = ""
			},
			wantErr: false,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "shouty" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Telegram.BotToken = "x"
			cfg.Providers.Anthropic.APIKey = "sk-test"
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	if got := cfg.Location().String(); got != "Asia/Ho_Chi_Minh" {
		t.Errorf("default location = %q", got)
	}

	cfg.Timezone = "Not/AZone"
	if cfg.Location() != time.UTC {
		t.Error("unknown timezone should fall back to UTC")
	}

	cfg.Timezone = ""
	if cfg.Location() != time.UTC {
		t.Error("empty timezone should fall back to UTC")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
