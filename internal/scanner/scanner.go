// Package scanner walks a directory tree and matches every discovered file
// against a signature store, fanning the per-entry work out over a bounded
// worker pool.
package scanner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourorg/sigscan/internal/logsink"
	"github.com/yourorg/sigscan/internal/registry"
	"github.com/yourorg/sigscan/internal/signature"
)

// Stats summarizes one completed scan.
type Stats struct {
	Duration time.Duration
	Files    int
	Dirs     int
	Flagged  int
	Failures int64
}

type target struct {
	path string
	dir  bool
}

// Scanner dispatches filesystem entries to workers that match file prefixes
// against the signature store. Not safe for concurrent Run calls.
type Scanner struct {
	sigs    *signature.Store
	risk    *registry.Risk
	sink    *logsink.Sink
	workers int

	foundFiles *registry.PathList
	foundDirs  *registry.PathList
	failures   atomic.Int64
}

func New(sigs *signature.Store, risk *registry.Risk, sink *logsink.Sink, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{sigs: sigs, risk: risk, sink: sink, workers: workers}
}

// Run walks the tree rooted at root and processes every entry exactly once.
// Symbolic links are neither followed nor matched (WalkDir does not descend
// through them, so link cycles cannot occur). A root that cannot be opened
// fails the run; any other unreadable entry is logged, counted, and skipped.
// Cancelling ctx stops discovery of new entries; already-queued entries
// still complete.
func (s *Scanner) Run(ctx context.Context, root string) (Stats, error) {
	start := time.Now()
	s.foundFiles = &registry.PathList{}
	s.foundDirs = &registry.PathList{}
	s.failures.Store(0)

	targets := make(chan target, 2*s.workers)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tgt := range targets {
				s.process(tgt)
			}
		}()
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.failures.Add(1)
			s.sink.Emit("Walk error: %s - %v", path, err)
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		targets <- target{path: path, dir: d.IsDir()}
		return nil
	})
	close(targets)
	wg.Wait()

	elapsed := time.Since(start)
	s.sink.Emit("Total runtime: %v", elapsed)

	stats := Stats{
		Duration: elapsed,
		Files:    s.foundFiles.Len(),
		Dirs:     s.foundDirs.Len(),
		Flagged:  s.risk.Len(),
		Failures: s.failures.Load(),
	}
	if walkErr != nil {
		return stats, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	return stats, nil
}

func (s *Scanner) process(tgt target) {
	started := time.Now()
	if tgt.dir {
		s.foundDirs.Append(tgt.path)
		s.sink.Emit("Directory: %s - Time: %v", tgt.path, time.Since(started))
		return
	}
	s.foundFiles.Append(tgt.path)
	head, err := readPrefix(tgt.path, s.sigs.MaxPatternLen())
	if err != nil {
		s.failures.Add(1)
		s.sink.Emit("File: %s - Error: %v", tgt.path, err)
		return
	}
	if id, ok := s.sigs.MatchPrefix(head); ok {
		s.risk.Record(tgt.path, id)
	}
	s.sink.Emit("File: %s - Time: %v", tgt.path, time.Since(started))
}

// FoundFiles returns the files discovered by the last Run.
func (s *Scanner) FoundFiles() []string {
	if s.foundFiles == nil {
		return nil
	}
	return s.foundFiles.Items()
}

// FoundDirs returns the directories discovered by the last Run.
func (s *Scanner) FoundDirs() []string {
	if s.foundDirs == nil {
		return nil
	}
	return s.foundDirs.Items()
}

// readPrefix reads the first n bytes of the file, fewer if it is shorter.
// The longest signature pattern bounds n, so the head is all matching needs.
func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	rn, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:rn], nil
}
