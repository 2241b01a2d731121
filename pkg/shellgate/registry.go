package shellgate

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func RegisterRunShellCommandTool(cfg Config) mcp.Tool {
	description := generateToolDescription(cfg)

	return mcp.NewTool("run_shell_command",
		mcp.WithDescription(description),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The shell command to execute (e.g., 'git status')"),
		),
		mcp.WithString("cwd",
			mcp.Description("Optional working directory override; must resolve inside the project root or an allowed root"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Optional timeout in milliseconds, clamped to the configured maximum"),
		),
		mcp.WithObject("env",
			mcp.Description("Optional environment variables overlaid on the process environment"),
		),
		mcp.WithBoolean("confirmed",
			mcp.Description("Pass true on the follow-up call to approve a previewed command"),
		),
		mcp.WithString("confirm_token",
			mcp.Description("Approval token from the confirmation prompt (token mode only)"),
		),
	)
}

func RegisterAuditLogTool() mcp.Tool {
	return mcp.NewTool("get_shell_audit_log",
		mcp.WithDescription("Read recent entries from the shell execution audit log, most recent first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default: 20)"),
		),
	)
}

func generateToolDescription(cfg Config) string {
	baseDesc := "Execute shell commands with permission gating, confirmation, and audit logging.\n\n"

	if !cfg.Enabled {
		baseDesc += "Mode: DISABLED - All commands are rejected.\n\n"
	} else if cfg.SkipConfirmation {
		baseDesc += "Mode: UNATTENDED - Commands run without a confirmation round-trip.\n\n"
	} else {
		baseDesc += "Mode: CONFIRMED - The first call returns a preview; re-invoke with confirmed=true to run.\n\n"
	}

	baseDesc += "Safety features:\n"
	baseDesc += "- Dangerous command patterns are always rejected\n"
	baseDesc += "- Working directory is restricted to the project root and allowed roots\n"
	baseDesc += "- Execution is bounded by a hard timeout\n"
	if cfg.AuditEnabled {
		baseDesc += "- Every executed command is recorded in an append-only audit log\n"
	}

	baseDesc += "\nExamples:\n"
	baseDesc += "- List files: command=\"ls -la\"\n"
	baseDesc += "- Run tests: command=\"go test ./...\" timeout_ms=120000\n"

	return baseDesc
}
