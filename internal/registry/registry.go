package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Risk accumulates path -> matched signature identifier across scan workers.
// At most one identifier is kept per path.
type Risk struct {
	mu    sync.Mutex
	risky map[string]string
}

func NewRisk() *Risk {
	return &Risk{risky: make(map[string]string)}
}

// Record inserts or overwrites the entry for path. Safe for concurrent use.
func (r *Risk) Record(path, identifier string) {
	r.mu.Lock()
	r.risky[path] = identifier
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy for reporting.
func (r *Risk) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.risky))
	for p, id := range r.risky {
		out[p] = id
	}
	return out
}

func (r *Risk) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.risky)
}

// PathList is a mutex-guarded append-only list of paths. The scanner keeps
// one for discovered files and one for discovered directories; the lock is
// held only for the append, never across file I/O.
type PathList struct {
	mu    sync.Mutex
	paths []string
}

func (l *PathList) Append(path string) {
	l.mu.Lock()
	l.paths = append(l.paths, path)
	l.mu.Unlock()
}

// Items returns a copy of the collected paths.
func (l *PathList) Items() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.paths))
	copy(out, l.paths)
	return out
}

func (l *PathList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// WriteFindings flushes a Risk snapshot to the findings log, one line per
// flagged path, sorted by path. The file is truncated: findings describe one
// completed scan, not a history.
func WriteFindings(path string, findings map[string]string) error {
	paths := make([]string, 0, len(findings))
	for p := range findings {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create findings log: %w", err)
	}
	defer f.Close()
	for _, p := range paths {
		if _, err := fmt.Fprintf(f, "Risky file: %s - Signature: %s\n", p, findings[p]); err != nil {
			return fmt.Errorf("write findings log: %w", err)
		}
	}
	return nil
}
