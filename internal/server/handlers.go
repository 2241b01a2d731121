package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskorbit/shellgate-mcp/pkg/shellgate"
)

// Deps wires the core components into the tool handlers. The handlers are
// the only code that talks to external collaborators (current project,
// config directory); the core stays free of them.
type Deps struct {
	Executor  *shellgate.Executor
	Confirmer *shellgate.Confirmer
	Audit     *shellgate.AuditLogger
	Config    shellgate.Config
	ProjectID string
}

// RunShellCommandHandler sequences Confirmation -> Executor -> Audit for
// the run_shell_command tool.
func RunShellCommandHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command, err := request.RequireString("command")
		if err != nil {
			return mcp.NewToolResultError("command is required"), nil
		}

		cwd := request.GetString("cwd", "")
		timeoutMs := int(request.GetFloat("timeout_ms", 0))
		confirmed := request.GetBool("confirmed", false)
		token := request.GetString("confirm_token", "")

		outcome := deps.Confirmer.Evaluate(shellgate.ActionShellExecute, map[string]any{
			"command": command,
			"cwd":     cwd,
		}, confirmed, token)
		if !outcome.Approved {
			return mcp.NewToolResultText(outcome.Prompt), nil
		}

		result := deps.Executor.Execute(ctx, shellgate.Request{
			Command:   command,
			Cwd:       cwd,
			TimeoutMs: timeoutMs,
			Env:       envOverlay(request.GetArguments()),
		})

		// Gate denials never reached the executor, so they are not audited.
		if deps.Config.AuditEnabled && deps.Audit != nil && !result.Denied {
			deps.Audit.Log(shellgate.AuditEntry{
				Timestamp:  time.Now().UTC(),
				Command:    result.Command,
				Cwd:        result.Cwd,
				ExitCode:   result.ExitCode,
				DurationMs: result.DurationMs,
				ProjectID:  deps.ProjectID,
				TimedOut:   result.TimedOut,
				Error:      result.Error,
			})
		}

		text := renderResult(result)
		if !result.Success {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

const defaultAuditLogLimit = 20

// GetAuditLogHandler serves the get_shell_audit_log tool.
func GetAuditLogHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Audit == nil {
			return mcp.NewToolResultError("audit logging is not enabled"), nil
		}

		limit := int(request.GetFloat("limit", defaultAuditLogLimit))
		if limit <= 0 {
			limit = defaultAuditLogLimit
		}
		entries, err := deps.Audit.RecentEntries(limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read audit log: %v", err)), nil
		}

		return mcp.NewToolResultText(renderAuditEntries(entries)), nil
	}
}

func envOverlay(args map[string]any) map[string]string {
	raw, ok := args["env"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	env := make(map[string]string, len(raw))
	for k, v := range raw {
		env[k] = fmt.Sprintf("%v", v)
	}
	return env
}

func renderResult(result shellgate.Result) string {
	var b strings.Builder
	b.WriteString(shellgate.RenderExecutionNotice(result))
	b.WriteString("\n")

	if result.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", result.Error)
	}
	if result.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n```\n%s\n```\n", strings.TrimRight(result.Stdout, "\n"))
	}
	if result.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n```\n%s\n```\n", strings.TrimRight(result.Stderr, "\n"))
	}
	return b.String()
}

func renderAuditEntries(entries []shellgate.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries recorded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Shell audit log (%d entries, most recent first)\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s `%s` (cwd: %s, exit code %d, %dms",
			e.Timestamp.UTC().Format(time.RFC3339), e.Command, e.Cwd, e.ExitCode, e.DurationMs)
		if e.TimedOut {
			b.WriteString(", timed out")
		}
		b.WriteString(")")
		if e.Error != "" {
			fmt.Fprintf(&b, " error: %s", e.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
