package shellgate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionKind classifies actions that may require user confirmation.
type ActionKind string

const (
	ActionShellExecute ActionKind = "shell_execute"
	ActionJobCancel    ActionKind = "job_cancel"
	ActionAgentDelete  ActionKind = "agent_delete"
)

// destructiveActions is the single source of truth for which action kinds
// require explicit user approval before they run.
var destructiveActions = map[ActionKind]bool{
	ActionShellExecute: true,
	ActionJobCancel:    true,
	ActionAgentDelete:  true,
}

func RequiresConfirmation(kind ActionKind) bool {
	return destructiveActions[kind]
}

// Outcome is the confirmation verdict for one call. When Approved is false
// the caller must return Prompt to the user and stop; the action does not
// run.
type Outcome struct {
	Approved bool
	Prompt   string
	Token    string
}

const defaultTokenTTL = 2 * time.Minute

// Confirmer implements the two-phase confirmation protocol. In the default
// mode approval is asserted per call through the confirmed flag and the
// confirmer holds no state. In token mode each pending prompt carries an
// opaque single-use token with a short expiry, and the follow-up call must
// present that token instead of a bare flag.
type Confirmer struct {
	skipShell    bool
	requireToken bool
	tokenTTL     time.Duration

	mu     sync.Mutex
	tokens map[string]pendingToken
}

type pendingToken struct {
	kind    ActionKind
	expires time.Time
}

func NewConfirmer(cfg Config) *Confirmer {
	return &Confirmer{
		skipShell:    cfg.SkipConfirmation,
		requireToken: cfg.RequireToken,
		tokenTTL:     defaultTokenTTL,
		tokens:       make(map[string]pendingToken),
	}
}

// Evaluate decides whether the action may proceed on this call. confirmed
// and token are caller-supplied; a Pending outcome carries the prompt to
// show the user.
func (c *Confirmer) Evaluate(kind ActionKind, params map[string]any, confirmed bool, token string) Outcome {
	if !RequiresConfirmation(kind) {
		return Outcome{Approved: true}
	}

	if kind == ActionShellExecute && c.skipShell {
		return Outcome{Approved: true}
	}

	if c.requireToken {
		if token != "" && c.redeemToken(kind, token) {
			return Outcome{Approved: true}
		}
		minted := c.mintToken(kind)
		prompt := renderPreview(kind, params) +
			fmt.Sprintf("Pass `confirm_token: %q` to approve. The token expires in %s.\n", minted, c.tokenTTL)
		return Outcome{Prompt: prompt, Token: minted}
	}

	if confirmed {
		return Outcome{Approved: true}
	}
	return Outcome{Prompt: RenderPrompt(kind, params)}
}

func (c *Confirmer) mintToken(kind ActionKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for t, pending := range c.tokens {
		if now.After(pending.expires) {
			delete(c.tokens, t)
		}
	}

	token := uuid.NewString()
	c.tokens[token] = pendingToken{kind: kind, expires: now.Add(c.tokenTTL)}
	return token
}

func (c *Confirmer) redeemToken(kind ActionKind, token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending, ok := c.tokens[token]
	if !ok {
		return false
	}
	delete(c.tokens, token)
	return pending.kind == kind && time.Now().Before(pending.expires)
}

// RenderPrompt produces the markdown preview shown to the user before a
// destructive action runs, ending with the confirmed-flag instruction used
// in the default mode. Token-mode prompts append their own instruction to
// renderPreview instead.
func RenderPrompt(kind ActionKind, params map[string]any) string {
	return renderPreview(kind, params) + "Re-invoke this tool with `confirmed: true` to proceed.\n"
}

func renderPreview(kind ActionKind, params map[string]any) string {
	var b strings.Builder
	b.WriteString("## Confirmation required\n\n")

	switch kind {
	case ActionShellExecute:
		b.WriteString("About to execute a shell command:\n\n")
		fmt.Fprintf(&b, "```sh\n%v\n```\n\n", params["command"])
		if cwd, ok := params["cwd"]; ok && cwd != "" {
			fmt.Fprintf(&b, "Working directory: `%v`\n\n", cwd)
		}
	case ActionJobCancel:
		fmt.Fprintf(&b, "About to cancel job `%v`.\n\n", params["jobId"])
	case ActionAgentDelete:
		fmt.Fprintf(&b, "About to delete agent `%v`.\n\n", params["agentId"])
	default:
		fmt.Fprintf(&b, "About to perform `%s` with:\n\n", kind)
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- `%s`: `%v`\n", k, params[k])
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderExecutionNotice describes what actually ran, distinct from the
// confirmation prompt, so the user sees the executed command even when
// confirmation is skipped.
func RenderExecutionNotice(result Result) string {
	status := "succeeded"
	switch {
	case result.TimedOut:
		status = "timed out"
	case !result.Success:
		status = "failed"
	}
	return fmt.Sprintf("Executed `%s` in `%s`: %s (exit code %d, %dms)",
		result.Command, result.Cwd, status, result.ExitCode, result.DurationMs)
}
