// Package logsink serializes log writes from many scan workers onto a single
// consumer goroutine. Workers never touch the log file; the channel is the
// only cross-goroutine path, so there are no file-write races to guard.
package logsink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

const DefaultBuffer = 1024

// Sink is a multi-producer, single-consumer asynchronous log writer.
// Messages from one producer appear in the file in send order; interleaving
// across producers follows channel receive order.
type Sink struct {
	f    *os.File
	w    *bufio.Writer
	ch   chan string
	done chan struct{}

	writeErrs atomic.Int64
}

// Open creates (or appends to) the log file at path, creating parent
// directories as needed, and starts the consumer goroutine.
func Open(path string) (*Sink, error) {
	return OpenBuffered(path, DefaultBuffer)
}

// OpenBuffered is Open with an explicit channel capacity. Emit blocks only
// when the consumer falls more than buffer messages behind.
func OpenBuffered(path string, buffer int) (*Sink, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s := &Sink{
		f:    f,
		w:    bufio.NewWriter(f),
		ch:   make(chan string, buffer),
		done: make(chan struct{}),
	}
	go s.consume()
	return s, nil
}

// Emit formats a message and enqueues it for the consumer. Must not be
// called after Close.
func (s *Sink) Emit(format string, args ...any) {
	s.ch <- fmt.Sprintf(format, args...)
}

func (s *Sink) consume() {
	defer close(s.done)
	for msg := range s.ch {
		if _, err := s.w.WriteString(msg); err != nil {
			s.writeErrs.Add(1)
			continue
		}
		if err := s.w.WriteByte('\n'); err != nil {
			s.writeErrs.Add(1)
		}
	}
}

// WriteErrors reports how many messages failed to reach the file. Log loss
// never aborts a scan; callers surface the count instead.
func (s *Sink) WriteErrors() int64 { return s.writeErrs.Load() }

// Close stops accepting messages, waits for the consumer to drain the
// channel, flushes, and closes the file. All producers must be done before
// Close is called.
func (s *Sink) Close() error {
	close(s.ch)
	<-s.done
	flushErr := s.w.Flush()
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("flush log file: %w", flushErr)
	}
	return nil
}
