package shellgate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIntegration_CustomPolicyEnforcement(t *testing.T) {
	tmpDir := t.TempDir()
	policyFile := filepath.Join(tmpDir, "policy.yaml")

	policyContent := `version: "1.0"
policy:
  denyPatterns:
    - '^\s*sudo\b'
    - '\bgit\s+push\s+--force\b'
`
	if err := os.WriteFile(policyFile, []byte(policyContent), 0o644); err != nil {
		t.Fatal(err)
	}

	gate, err := NewGate(policyFile)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}

	projectRoot := t.TempDir()
	exec := NewExecutor(gate, DefaultConfig(), projectRoot)

	tests := []struct {
		name        string
		command     string
		wantSuccess bool
		wantDenied  bool
	}{
		{
			name:        "allowed command runs",
			command:     "echo ok",
			wantSuccess: true,
		},
		{
			name:       "sudo denied by policy",
			command:    "sudo apt install foo",
			wantDenied: true,
		},
		{
			name:       "force push denied by policy",
			command:    "git push --force origin main",
			wantDenied: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := exec.Execute(context.Background(), Request{Command: tt.command})
			if result.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v (error: %s)", result.Success, tt.wantSuccess, result.Error)
			}
			if result.Denied != tt.wantDenied {
				t.Errorf("Denied = %v, want %v", result.Denied, tt.wantDenied)
			}
			if tt.wantDenied && !strings.Contains(result.Error, "denied") {
				t.Errorf("Error = %q, want substring %q", result.Error, "denied")
			}
		})
	}
}

func TestIntegration_ConfirmThenExecuteThenAudit(t *testing.T) {
	projectRoot := t.TempDir()
	auditDir := filepath.Join(t.TempDir(), "audit")

	gate := newTestGate(t)
	cfg := DefaultConfig()
	exec := NewExecutor(gate, cfg, projectRoot)
	confirmer := NewConfirmer(cfg)
	audit, err := NewAuditLogger(auditDir)
	if err != nil {
		t.Fatal(err)
	}

	params := map[string]any{"command": "echo staged", "cwd": projectRoot}

	pending := confirmer.Evaluate(ActionShellExecute, params, false, "")
	if pending.Approved {
		t.Fatal("first call must return a pending confirmation")
	}
	if _, err := os.Stat(auditDir); !os.IsNotExist(err) {
		t.Error("pending confirmation must not touch the audit directory")
	}

	approved := confirmer.Evaluate(ActionShellExecute, params, true, "")
	if !approved.Approved {
		t.Fatal("confirmed call must approve")
	}

	result := exec.Execute(context.Background(), Request{Command: "echo staged", Cwd: projectRoot})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	audit.Log(AuditEntry{
		Command:    result.Command,
		Cwd:        result.Cwd,
		ExitCode:   result.ExitCode,
		DurationMs: result.DurationMs,
	})

	entries, err := audit.RecentEntries(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Command != "echo staged" {
		t.Errorf("audit round-trip failed, entries = %+v", entries)
	}
}

func TestIntegration_ConcurrentExecutes(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig(), t.TempDir())

	const n = 8
	results := make(chan Result, n)
	for i := 0; i < n; i++ {
		go func() {
			results <- exec.Execute(context.Background(), Request{Command: "echo concurrent"})
		}()
	}

	for i := 0; i < n; i++ {
		result := <-results
		if !result.Success {
			t.Errorf("concurrent Execute() failed: %s", result.Error)
		}
		if result.Stdout != "concurrent\n" {
			t.Errorf("Stdout = %q, want %q", result.Stdout, "concurrent\n")
		}
	}
}
