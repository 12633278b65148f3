package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func enabledShell(t *testing.T) *ShellExec {
	t.Helper()
	cfg := DefaultShellExecConfig()
	cfg.Enabled = true
	cfg.WorkingDir = t.TempDir()
	return NewShellExec(cfg)
}

func TestExecDisabledByDefault(t *testing.T) {
	s := NewShellExec(DefaultShellExecConfig())
	if _, err := s.Exec(context.Background(), "echo hi", 0); err == nil {
		t.Fatal("expected error when disabled")
	}
}

func TestExecCapturesOutput(t *testing.T) {
	s := enabledShell(t)

	result, err := s.Exec(context.Background(), "echo hello; echo oops >&2", 0)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("stderr = %q", result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
}

func TestExecNonZeroExitIsNotAnError(t *testing.T) {
	s := enabledShell(t)

	result, err := s.Exec(context.Background(), "exit 3", 0)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestExecDeniedPattern(t *testing.T) {
	s := enabledShell(t)

	if _, err := s.Exec(context.Background(), "sudo reboot", 0); err == nil {
		t.Fatal("expected denied-pattern error")
	}
}

func TestExecTimeout(t *testing.T) {
	cfg := DefaultShellExecConfig()
	cfg.Enabled = true
	cfg.DefaultTimeout = 100 * time.Millisecond
	s := NewShellExec(cfg)

	result, err := s.Exec(context.Background(), "sleep 5", 0)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut")
	}
}

func TestRunCommandToolResultIsJSON(t *testing.T) {
	r := NewRegistry()
	enabledShell(t).RegisterTools(r)

	b, err := r.Bundle("general")
	if err != nil {
		t.Fatal(err)
	}

	out, err := b.Execute(context.Background(), "run_command", map[string]any{"command": "echo json"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var result ExecResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "json" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestTruncateOutput(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := truncateOutput(long, 100)
	if len(got) <= 100 {
		t.Error("expected truncation note appended")
	}
	if !strings.Contains(got, "truncated") {
		t.Errorf("missing truncation note: %q", got[100:])
	}
	if truncateOutput("short", 100) != "short" {
		t.Error("short output should pass through")
	}
}
