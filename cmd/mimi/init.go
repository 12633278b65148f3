package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mimibot/mimi/internal/defaults"
)

// runInit initializes a Mimi working directory with default files.
// It creates the data directory and writes sample config and identity
// files. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Mimi workspace in %s\n", dir)

	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Join(dir, "data"), err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(configPath, defaults.ConfigYAML); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	identityPath := filepath.Join(dir, "identity.md")
	if err := writeIfMissing(identityPath, defaults.IdentityMD); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", identityPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml and identity.md to customize your installation,")
	fmt.Fprintln(w, "then run: mimi serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not already
// exist. This ensures init never overwrites user customizations.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil // already exists, skip
	}
	return os.WriteFile(path, content, 0o644)
}
