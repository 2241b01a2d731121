package shellgate

import (
	"time"
)

// Request describes a single shell invocation. It is built fresh per call
// and never persisted.
type Request struct {
	Command   string
	Cwd       string
	TimeoutMs int
	Env       map[string]string
}

// Result is the outcome of one Execute call. Every failure path is captured
// in these fields; Execute never returns an error.
type Result struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	DurationMs int64  `json:"durationMs"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	Error      string `json:"error,omitempty"`

	// Denied marks results produced by the gate before any process was
	// spawned. The adapter uses it to skip audit logging for such results.
	Denied bool `json:"-"`
}

// Config is the process-wide shell execution configuration. It is loaded
// once and treated as an immutable snapshot for the duration of a call.
type Config struct {
	Enabled          bool     `json:"enabled"`
	DefaultTimeoutMs int      `json:"defaultTimeout"`
	MaxTimeoutMs     int      `json:"maxTimeout"`
	SkipConfirmation bool     `json:"skipConfirmation"`
	AuditEnabled     bool     `json:"auditEnabled"`
	RequireToken     bool     `json:"requireConfirmationToken"`
	AllowedRoots     []string `json:"allowedRoots"`
	DenyPolicyFile   string   `json:"denyPolicyFile"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		DefaultTimeoutMs: 30000,
		MaxTimeoutMs:     300000,
		SkipConfirmation: false,
		AuditEnabled:     true,
	}
}

// Decision is the gate's verdict on a single command. Pure value, never
// stored; Reason is surfaced verbatim to callers and the audit trail. Type
// classifies denials so the executor can fold them into the right result
// fields.
type Decision struct {
	Allowed bool
	Reason  string
	Type    ErrorType
}

// AuditEntry is one durable record of an executed action. Entries are
// appended to a date-partitioned JSONL file and never mutated.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Command    string    `json:"command"`
	Cwd        string    `json:"cwd"`
	ExitCode   int       `json:"exitCode"`
	DurationMs int64     `json:"durationMs"`
	ProjectID  string    `json:"projectId,omitempty"`
	TimedOut   bool      `json:"timedOut,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// DenyPolicy is the YAML shape of the dangerous-command policy file.
type DenyPolicy struct {
	Version string      `yaml:"version"`
	Policy  PolicyRules `yaml:"policy"`
}

type PolicyRules struct {
	DenyPatterns []string `yaml:"denyPatterns"`
}
