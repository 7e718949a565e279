package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestRiskConcurrentRecord(t *testing.T) {
	r := NewRisk()
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.Record(fmt.Sprintf("/scan/%d/%d", w, i), "SIG")
			}
		}(w)
	}
	wg.Wait()

	if r.Len() != workers*perWorker {
		t.Fatalf("lost or duplicated entries: got %d want %d", r.Len(), workers*perWorker)
	}
}

func TestRiskSnapshotIsACopy(t *testing.T) {
	r := NewRisk()
	r.Record("/a", "X")
	snap := r.Snapshot()
	snap["/b"] = "Y"
	if r.Len() != 1 {
		t.Fatalf("snapshot mutation leaked into registry: len=%d", r.Len())
	}
}

func TestPathListConcurrentAppend(t *testing.T) {
	var l PathList
	const workers = 4
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Append(fmt.Sprintf("/p/%d/%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	items := l.Items()
	if len(items) != workers*perWorker {
		t.Fatalf("unexpected item count: %d", len(items))
	}
	seen := make(map[string]struct{}, len(items))
	for _, p := range items {
		if _, dup := seen[p]; dup {
			t.Fatalf("duplicate entry: %s", p)
		}
		seen[p] = struct{}{}
	}
}

func TestWriteFindings(t *testing.T) {
	out := filepath.Join(t.TempDir(), "findings.log")
	err := WriteFindings(out, map[string]string{
		"/b/file2": "MZ",
		"/a/file1": "EICAR",
	})
	if err != nil {
		t.Fatalf("WriteFindings failed: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	if lines[0] != "Risky file: /a/file1 - Signature: EICAR" {
		t.Fatalf("unexpected first line (path sort): %q", lines[0])
	}
	if lines[1] != "Risky file: /b/file2 - Signature: MZ" {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}
