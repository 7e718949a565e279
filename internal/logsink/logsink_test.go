package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestCloseDrainsBufferedMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.log")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		s.Emit("File: /scan/%d - Time: 1ms", i)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := len(readLines(t, path)); got != 100 {
		t.Fatalf("lost messages: got %d lines, want 100", got)
	}
	if s.WriteErrors() != 0 {
		t.Fatalf("unexpected write errors: %d", s.WriteErrors())
	}
}

func TestPerProducerOrderPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.log")
	s, err := OpenBuffered(path, 16)
	if err != nil {
		t.Fatalf("OpenBuffered failed: %v", err)
	}

	const producers = 4
	const perProducer = 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Emit("p%d seq %d", p, i)
			}
		}(p)
	}
	wg.Wait()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != producers*perProducer {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	// Each producer's messages must appear in its own send order; the
	// cross-producer interleaving is unconstrained.
	next := make([]int, producers)
	for _, line := range lines {
		var p, seq int
		if _, err := fmt.Sscanf(line, "p%d seq %d", &p, &seq); err != nil {
			t.Fatalf("unparseable line %q: %v", line, err)
		}
		if seq != next[p] {
			t.Fatalf("producer %d out of order: got seq %d, want %d", p, seq, next[p])
		}
		next[p]++
	}
}

func TestOpenAppendsAcrossSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.log")
	for run := 0; run < 2; run++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		s.Emit("run %d", run)
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
	if got := len(readLines(t, path)); got != 2 {
		t.Fatalf("expected appended log, got %d lines", got)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "perf.log")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestOpenFailsOnUncreatablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// Parent "directory" is a regular file.
	if _, err := Open(filepath.Join(blocker, "perf.log")); err == nil {
		t.Fatal("expected Open to fail")
	}
}
