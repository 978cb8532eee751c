package logbuf

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// WriteSession persists the full event stream into dir, one file per run.
// The failures stream is appended as a distinct section when non-empty.
// The run ID keeps filenames unique even for runs started within the same
// second.
func (l *Log) WriteSession(fs afero.Fs, dir, runID string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create logs dir: %w", err)
	}

	name := fmt.Sprintf("session_%s_%s.log", time.Now().Format("20060102_150405"), runID)

	f, err := fs.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("cannot create session log: %w", err)
	}
	defer f.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.lines {
		if _, err := fmt.Fprintln(f, s); err != nil {
			return fmt.Errorf("cannot write session log: %w", err)
		}
	}

	if len(l.failures) > 0 {
		fmt.Fprintln(f, "\n--- FAILURES ---")
		for _, s := range l.failures {
			if _, err := fmt.Fprintln(f, s); err != nil {
				return fmt.Errorf("cannot write session log: %w", err)
			}
		}
	}

	return nil
}
