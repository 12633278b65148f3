package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInitFreshDirectory(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "data"))
	if err != nil {
		t.Errorf("expected data directory: %v", err)
	} else if !info.IsDir() {
		t.Error("data is not a directory")
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	if !strings.Contains(string(cfg), "telegram:") {
		t.Error("config.yaml missing telegram section")
	}

	if _, err := os.Stat(filepath.Join(dir, "identity.md")); err != nil {
		t.Fatalf("identity.md not created: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "config.yaml") || !strings.Contains(out, "identity.md") {
		t.Errorf("output missing created files: %q", out)
	}
}

func TestRunInitSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("first runInit failed: %v", err)
	}

	// Write a sentinel into config.yaml so we can verify it isn't overwritten.
	sentinel := []byte("# sentinel — do not overwrite\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), sentinel, 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("second runInit failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, sentinel) {
		t.Errorf("config.yaml was overwritten: %q", got)
	}
}

func TestInitConfigIsLoadable(t *testing.T) {
	// The sample config must round-trip through the real loader.
	dir := t.TempDir()
	if err := runInit(new(bytes.Buffer), dir); err != nil {
		t.Fatal(err)
	}

	// loadConfig goes through config.Load, which expands env vars and
	// applies defaults.
	cfg, _, err := loadConfig(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if cfg.Providers.Default != "anthropic" {
		t.Errorf("default provider = %q", cfg.Providers.Default)
	}
	if cfg.History.MaxSteps != 10 {
		t.Errorf("max_steps = %d", cfg.History.MaxSteps)
	}
}
