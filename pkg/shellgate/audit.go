package shellgate

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	auditFilePrefix = "shell-audit-"
	auditFileSuffix = ".jsonl"
)

// AuditLogger appends executed-action records to date-partitioned JSONL
// files, one file per UTC day. Entries are never mutated or deleted.
//
// Construct one logger at process start and pass it to whatever needs it;
// there is no package-level instance. The mutex serializes appends so a
// line is never interleaved with another writer in the same process.
type AuditLogger struct {
	dir     string
	reportf func(format string, args ...any)
	mu      sync.Mutex
}

func NewAuditLogger(dir string) (*AuditLogger, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit directory must not be empty")
	}
	return &AuditLogger{dir: dir, reportf: log.Printf}, nil
}

// SetReporter redirects failure reporting, which defaults to the standard
// logger on stderr. Set once at startup, before the first Log call.
func (l *AuditLogger) SetReporter(reportf func(format string, args ...any)) {
	l.reportf = reportf
}

func (l *AuditLogger) reportFailure(entry AuditEntry, message string) {
	l.reportf("%v", NewGateError(ErrorTypeAudit, message, entry.Command))
}

// Log appends one entry to the current day's file. It never fails the
// caller: write errors are reported to stderr and swallowed, since a broken
// audit subsystem must not prevent command execution.
func (l *AuditLogger) Log(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.reportFailure(entry, fmt.Sprintf("failed to encode entry: %v", err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.reportFailure(entry, fmt.Sprintf("failed to create directory %s: %v", l.dir, err))
		return
	}

	path := filepath.Join(l.dir, auditFileName(entry.Timestamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.reportFailure(entry, fmt.Sprintf("failed to open %s: %v", path, err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.reportFailure(entry, fmt.Sprintf("failed to append to %s: %v", path, err))
	}
}

// RecentEntries returns up to limit entries in reverse-chronological order:
// most recent day first, then last-appended first within a day. Lines that
// fail to parse are skipped so a corrupt or partial write never breaks
// retrieval. A missing audit directory yields an empty slice, not an error.
func (l *AuditLogger) RecentEntries(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	var files []string
	for _, de := range dirEntries {
		name := de.Name()
		if !de.IsDir() && strings.HasPrefix(name, auditFilePrefix) && strings.HasSuffix(name, auditFileSuffix) {
			files = append(files, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var entries []AuditEntry
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			l.reportf("%v", NewGateError(ErrorTypeAudit, fmt.Sprintf("failed to read %s: %v", name, err), ""))
			continue
		}

		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.TrimSpace(lines[i]) == "" {
				continue
			}
			var entry AuditEntry
			if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
			if len(entries) >= limit {
				return entries, nil
			}
		}
	}

	return entries, nil
}

func auditFileName(ts time.Time) string {
	return auditFilePrefix + ts.UTC().Format("2006-01-02") + auditFileSuffix
}
