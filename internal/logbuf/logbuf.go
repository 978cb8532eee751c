package logbuf

import (
	"fmt"
	"sync"
)

const (
	maxLines      = 800
	evictLines    = 200
	maxFailures   = 200
	evictFailures = 50
)

// Log is a capacity-bounded, thread-safe live log with two channels: a
// general event stream and a separate failures stream. When a channel
// exceeds its capacity the oldest block of entries is evicted, so appends
// never block and memory stays bounded across long runs.
type Log struct {
	mu       sync.Mutex
	lines    []string
	failures []string
}

func New() *Log {
	return &Log{}
}

// Push appends an entry to the general stream.
func (l *Log) Push(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, s)
	if len(l.lines) > maxLines {
		l.lines = append(l.lines[:0:0], l.lines[evictLines:]...)
	}
}

// Pushf formats and appends an entry to the general stream.
func (l *Log) Pushf(format string, args ...any) {
	l.Push(fmt.Sprintf(format, args...))
}

// Fail appends an entry to the failures stream.
func (l *Log) Fail(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures = append(l.failures, s)
	if len(l.failures) > maxFailures {
		l.failures = append(l.failures[:0:0], l.failures[evictFailures:]...)
	}
}

// Failf formats and appends an entry to the failures stream.
func (l *Log) Failf(format string, args ...any) {
	l.Fail(fmt.Sprintf(format, args...))
}

// Lines returns a copy of the general stream.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.lines...)
}

// Failures returns a copy of the failures stream.
func (l *Log) Failures() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.failures...)
}
