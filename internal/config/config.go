package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/taskorbit/shellgate-mcp/pkg/shellgate"
)

const shellConfigFileName = "shell-config.json"

type Config struct {
	Transport string
	Host      string
	Port      int
	LogLevel  string

	// ConfigDir is the root under which the shell config file and the
	// audit subdirectory live.
	ConfigDir   string
	ProjectRoot string
	ProjectID   string

	Shell shellgate.Config
}

func NewConfig() *Config {
	return &Config{
		Transport: "stdio",
		Host:      "127.0.0.1",
		Port:      8000,
		LogLevel:  "info",
		Shell:     shellgate.DefaultConfig(),
	}
}

func (c *Config) ParseFlags() error {
	flag.StringVar(&c.Transport, "transport", c.Transport, "Transport mechanism (stdio, sse, streamable-http)")
	flag.StringVar(&c.Host, "host", c.Host, "Host to listen on (for non-stdio transport)")
	flag.IntVar(&c.Port, "port", c.Port, "Port to listen on (for non-stdio transport)")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&c.ConfigDir, "config-dir", c.ConfigDir, "Directory holding shell-config.json and the audit log (default: ~/.shellgate)")
	flag.StringVar(&c.ProjectRoot, "project-root", c.ProjectRoot, "Project root used as default working directory and containment boundary (default: current directory)")
	flag.StringVar(&c.ProjectID, "project-id", c.ProjectID, "Project identifier recorded in audit entries")

	showHelp := flag.BoolP("help", "h", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Parse()

	if *showHelp {
		fmt.Printf("Shellgate MCP Server\n\nUsage:\n")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("Shellgate MCP Server version 1.0.0\n")
		os.Exit(0)
	}

	c.loadFromEnv()

	if err := c.resolvePaths(); err != nil {
		return err
	}

	shell, err := LoadShellConfig(c.ShellConfigPath())
	if err != nil {
		return err
	}
	c.Shell = shell

	return c.Validate()
}

func (c *Config) loadFromEnv() {
	if dir := os.Getenv("SHELLGATE_CONFIG_DIR"); dir != "" && c.ConfigDir == "" {
		c.ConfigDir = dir
	}
	if root := os.Getenv("SHELLGATE_PROJECT_ROOT"); root != "" && c.ProjectRoot == "" {
		c.ProjectRoot = root
	}
	if id := os.Getenv("SHELLGATE_PROJECT_ID"); id != "" && c.ProjectID == "" {
		c.ProjectID = id
	}
}

func (c *Config) resolvePaths() error {
	if c.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot resolve config directory: %w", err)
		}
		c.ConfigDir = filepath.Join(home, ".shellgate")
	}

	if c.ProjectRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot resolve project root: %w", err)
		}
		c.ProjectRoot = cwd
	}

	abs, err := filepath.Abs(c.ProjectRoot)
	if err != nil {
		return fmt.Errorf("invalid project root %q: %w", c.ProjectRoot, err)
	}
	c.ProjectRoot = abs

	return nil
}

func (c *Config) Validate() error {
	validTransports := map[string]bool{
		"stdio":           true,
		"sse":             true,
		"streamable-http": true,
	}

	if !validTransports[c.Transport] {
		return fmt.Errorf("invalid transport: %s (must be stdio, sse, or streamable-http)", c.Transport)
	}

	return nil
}

func (c *Config) ShellConfigPath() string {
	return filepath.Join(c.ConfigDir, shellConfigFileName)
}

func (c *Config) AuditDir() string {
	return filepath.Join(c.ConfigDir, "audit")
}

// LoadShellConfig reads the shell execution config from path and merges it
// over the typed defaults: fields absent from the file keep their default
// value, and a completely absent file yields the all-defaults config.
func LoadShellConfig(path string) (shellgate.Config, error) {
	cfg := shellgate.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read shell config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse shell config %s: %w", path, err)
	}

	return cfg, validateShellConfig(cfg)
}

func validateShellConfig(cfg shellgate.Config) error {
	if cfg.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("defaultTimeout must be greater than 0")
	}
	if cfg.MaxTimeoutMs <= 0 {
		return fmt.Errorf("maxTimeout must be greater than 0")
	}
	if cfg.DefaultTimeoutMs > cfg.MaxTimeoutMs {
		return fmt.Errorf("defaultTimeout (%d) must not exceed maxTimeout (%d)", cfg.DefaultTimeoutMs, cfg.MaxTimeoutMs)
	}
	return nil
}
