package shellgate

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newTestExecutor(t *testing.T, cfg Config, projectRoot string) *Executor {
	t.Helper()
	return NewExecutor(newTestGate(t), cfg, projectRoot)
}

func TestExecutor_EchoSucceeds(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: `echo "hello world"`})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.Stdout != "hello world\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "hello world\n")
	}
	if result.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", result.Stderr)
	}
	if result.TimedOut {
		t.Error("TimedOut should be false")
	}
}

func TestExecutor_CwdPassthrough(t *testing.T) {
	projectRoot := t.TempDir()
	exec := newTestExecutor(t, DefaultConfig(), projectRoot)

	result := exec.Execute(context.Background(), Request{Command: "pwd", Cwd: projectRoot})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.Cwd != projectRoot {
		t.Errorf("result.Cwd = %q, want %q", result.Cwd, projectRoot)
	}

	// pwd reports the physical directory, so resolve symlinks before comparing.
	want, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(result.Stdout); got != want {
		t.Errorf("pwd output = %q, want %q", got, want)
	}
}

func TestExecutor_DefaultsToProjectRoot(t *testing.T) {
	projectRoot := t.TempDir()
	exec := newTestExecutor(t, DefaultConfig(), projectRoot)

	result := exec.Execute(context.Background(), Request{Command: "pwd"})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.Cwd != projectRoot {
		t.Errorf("result.Cwd = %q, want project root %q", result.Cwd, projectRoot)
	}
}

func TestExecutor_TimeoutRace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTimeoutMs = 100
	exec := newTestExecutor(t, cfg, t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: "sleep 2"})

	if result.Success {
		t.Fatal("sleep past the timeout should not succeed")
	}
	if !result.TimedOut {
		t.Error("TimedOut should be true")
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if result.DurationMs < 100 {
		t.Errorf("DurationMs = %d, want >= 100", result.DurationMs)
	}
	if result.DurationMs >= 2000 {
		t.Errorf("DurationMs = %d, caller should have stopped waiting at the timeout", result.DurationMs)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("Error = %q, want substring %q", result.Error, "timed out")
	}
}

func TestExecutor_TimeoutClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTimeoutMs = 50
	cfg.MaxTimeoutMs = 100
	exec := newTestExecutor(t, cfg, t.TempDir())

	// A request above the ceiling must behave identically to one at the ceiling.
	result := exec.Execute(context.Background(), Request{Command: "sleep 2", TimeoutMs: 5000})

	if !result.TimedOut {
		t.Fatal("TimedOut should be true")
	}
	if !strings.Contains(result.Error, "timed out after 100ms") {
		t.Errorf("Error = %q, want clamp to 100ms", result.Error)
	}
	if result.DurationMs >= 2000 {
		t.Errorf("DurationMs = %d, want well below the requested 5000ms", result.DurationMs)
	}
}

func TestExecutor_DisabledConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	exec := newTestExecutor(t, cfg, t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: "echo hello"})

	if result.Success {
		t.Fatal("disabled config should fail every command")
	}
	if !strings.Contains(result.Error, "disabled") {
		t.Errorf("Error = %q, want substring %q", result.Error, "disabled")
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if !result.Denied {
		t.Error("Denied should be true, nothing was spawned")
	}
}

func TestExecutor_DeniedCommand(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: "sudo rm -rf /"})

	if result.Success {
		t.Fatal("denylisted command should not succeed")
	}
	if !strings.Contains(result.Error, "denied") {
		t.Errorf("Error = %q, want substring %q", result.Error, "denied")
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if !result.Denied {
		t.Error("Denied should be true, nothing was spawned")
	}
}

func TestExecutor_EmptyCommand(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: ""})

	if result.Success {
		t.Fatal("empty command must not silently succeed")
	}
	if result.Error == "" {
		t.Error("empty command should carry a clear error")
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: "exit 3"})

	if result.Success {
		t.Fatal("non-zero exit should not be a success")
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("TimedOut should be false for a command that ran to completion")
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty: a non-zero exit is not a systems failure", result.Error)
	}
}

func TestExecutor_StderrCapture(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{Command: "echo oops 1>&2"})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.Stderr != "oops\n" {
		t.Errorf("Stderr = %q, want %q", result.Stderr, "oops\n")
	}
}

func TestExecutor_EnvOverlay(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	result := exec.Execute(context.Background(), Request{
		Command: `printf '%s' "$SHELLGATE_TEST_VAR"`,
		Env:     map[string]string{"SHELLGATE_TEST_VAR": "overlay-value"},
	})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.Stdout != "overlay-value" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "overlay-value")
	}
}

func TestExecutor_EffectiveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTimeoutMs = 200
	cfg.MaxTimeoutMs = 1000
	exec := newTestExecutor(t, cfg, t.TempDir())

	tests := []struct {
		name      string
		requested int
		wantMs    int64
	}{
		{name: "zero falls back to default", requested: 0, wantMs: 200},
		{name: "negative falls back to default", requested: -5, wantMs: 200},
		{name: "within ceiling", requested: 500, wantMs: 500},
		{name: "clamped to ceiling", requested: 5000, wantMs: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exec.effectiveTimeout(tt.requested).Milliseconds(); got != tt.wantMs {
				t.Errorf("effectiveTimeout(%d) = %dms, want %dms", tt.requested, got, tt.wantMs)
			}
		})
	}
}
