package shellgate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Gate decides whether a command may run at all. It performs pattern-based
// admission control over the command string and working directory; it is not
// a sandbox. Decide has no side effects and is safe for concurrent use.
type Gate struct {
	patterns []*regexp.Regexp
	raw      []string
}

// NewGate compiles the deny policy from policyFile, or the embedded default
// policy when policyFile is empty.
func NewGate(policyFile string) (*Gate, error) {
	policy, err := LoadDenyPolicy(policyFile)
	if err != nil {
		return nil, err
	}

	gate := &Gate{}
	for _, pattern := range policy.Policy.DenyPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
		gate.patterns = append(gate.patterns, re)
		gate.raw = append(gate.raw, pattern)
	}
	return gate, nil
}

// Decide returns the admission verdict for command run from cwd. Denial
// reasons contain the stable substrings "disabled" or "denied"; calling
// tools pattern-match on them.
func (g *Gate) Decide(command, cwd, projectRoot string, cfg Config) Decision {
	if !cfg.Enabled {
		return Decision{Allowed: false, Reason: "shell execution is disabled", Type: ErrorTypeDisabled}
	}

	if strings.TrimSpace(command) == "" {
		return Decision{Allowed: false, Reason: "empty command denied", Type: ErrorTypeDenied}
	}

	for i, re := range g.patterns {
		if re.MatchString(command) {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("command denied by security policy: %s", g.raw[i]),
				Type:    ErrorTypeDenied,
			}
		}
	}

	if cwd != "" {
		if reason := g.checkWorkingDir(cwd, projectRoot, cfg.AllowedRoots); reason != "" {
			return Decision{Allowed: false, Reason: reason, Type: ErrorTypeDenied}
		}
	}

	return Decision{Allowed: true}
}

// checkWorkingDir verifies cwd resolves inside projectRoot or one of the
// configured allowed-root globs. Returns a denial reason, or "" when OK.
func (g *Gate) checkWorkingDir(cwd, projectRoot string, allowedRoots []string) string {
	resolved := canonicalize(cwd)

	if projectRoot != "" && pathWithin(resolved, canonicalize(projectRoot)) {
		return ""
	}

	for _, root := range allowedRoots {
		matched, err := doublestar.Match(filepath.ToSlash(root), filepath.ToSlash(resolved))
		if err != nil {
			continue
		}
		if matched || pathWithin(resolved, canonicalize(root)) {
			return ""
		}
	}

	return fmt.Sprintf("working directory denied: %s is outside the project root", cwd)
}

// canonicalize makes path absolute and resolves symlinks where possible so
// containment checks cannot be escaped through links.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func pathWithin(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// LoadDenyPolicy reads the dangerous-command policy from filePath, falling
// back to the embedded default policy when filePath is empty.
func LoadDenyPolicy(filePath string) (*DenyPolicy, error) {
	var data []byte

	if filePath == "" {
		data = []byte(DefaultDenyPolicy)
	} else {
		var err error
		// #nosec G304 - This is the intended behavior: load custom policy file from user-specified path
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	var policy DenyPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	return &policy, nil
}
