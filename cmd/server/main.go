package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/taskorbit/shellgate-mcp/internal/config"
	"github.com/taskorbit/shellgate-mcp/internal/logger"
	mcpserver "github.com/taskorbit/shellgate-mcp/internal/server"
	"github.com/taskorbit/shellgate-mcp/internal/version"
	"github.com/taskorbit/shellgate-mcp/pkg/shellgate"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.ParseFlags(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}

	gate, err := shellgate.NewGate(cfg.Shell.DenyPolicyFile)
	if err != nil {
		log.Fatalf("Failed to load deny policy: %v", err)
	}

	var audit *shellgate.AuditLogger
	if cfg.Shell.AuditEnabled {
		audit, err = shellgate.NewAuditLogger(cfg.AuditDir())
		if err != nil {
			log.Fatalf("Failed to initialize audit log: %v", err)
		}
		audit.SetReporter(logger.Errorf)
	}

	deps := mcpserver.Deps{
		Executor:  shellgate.NewExecutor(gate, cfg.Shell, cfg.ProjectRoot),
		Confirmer: shellgate.NewConfirmer(cfg.Shell),
		Audit:     audit,
		Config:    cfg.Shell,
		ProjectID: cfg.ProjectID,
	}

	mcpServer := server.NewMCPServer(
		"Shellgate MCP",
		version.GetVersion(),
	)

	mcpServer.AddTool(shellgate.RegisterRunShellCommandTool(cfg.Shell), mcpserver.RunShellCommandHandler(deps))
	mcpServer.AddTool(shellgate.RegisterAuditLogTool(), mcpserver.GetAuditLogHandler(deps))

	logger.Infof("Starting Shellgate MCP server (version %s), project root %s", version.GetVersion(), cfg.ProjectRoot)
	if err := runServer(mcpServer, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runServer(mcpServer *server.MCPServer, cfg *config.Config) error {
	switch cfg.Transport {
	case "stdio":
		logger.Infof("Listening for requests on STDIO...")
		return server.ServeStdio(mcpServer)

	case "sse":
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		baseURL := fmt.Sprintf("http://%s", addr)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", healthHandler)

		customServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithBaseURL(baseURL),
			server.WithHTTPServer(customServer),
		)

		logger.Infof("SSE server listening on %s", addr)
		logger.Infof("SSE endpoint available at: %s/sse", baseURL)
		logger.Infof("Message endpoint available at: %s/message", baseURL)
		logger.Infof("Health check available at: %s/health", baseURL)

		return sseServer.Start(addr)

	case "streamable-http":
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", healthHandler)

		customServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		streamableServer := server.NewStreamableHTTPServer(
			mcpServer,
			server.WithStreamableHTTPServer(customServer),
		)

		mux.Handle("/mcp", streamableServer)

		logger.Infof("Streamable HTTP server listening on %s", addr)
		logger.Infof("MCP endpoint available at: http://%s/mcp", addr)
		logger.Infof("Health check available at: http://%s/health", addr)

		return customServer.ListenAndServe()

	default:
		return fmt.Errorf("invalid transport type: %s (must be 'stdio', 'sse', or 'streamable-http')", cfg.Transport)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
