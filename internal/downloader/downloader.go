// Package downloader fetches one remote file at a time into a temp file
// and commits it atomically. Bounded fan-out across units is driven by
// the pipeline.
package downloader

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/fastdl/mapsync/internal/httpclient"
	"github.com/fastdl/mapsync/internal/logbuf"
	"github.com/fastdl/mapsync/internal/runstate"
)

const (
	tmpSuffix  = ".part"
	retryDelay = 250 * time.Millisecond
)

type Getter interface {
	Fetch(ctx context.Context, url string, timeout time.Duration, w io.Writer) (*httpclient.Response, error)
}

type Options struct {
	// Timeout bounds each transfer attempt.
	Timeout time.Duration

	// Retries is the maximum number of attempts per unit.
	Retries int
}

type Engine struct {
	fs     afero.Fs
	client Getter
	opts   Options
	live   *logbuf.Log
	log    *slog.Logger
}

func New(client Getter, opts Options, live *logbuf.Log, log *slog.Logger) *Engine {
	return NewWithFS(afero.NewOsFs(), client, opts, live, log)
}

func NewWithFS(fs afero.Fs, client Getter, opts Options, live *logbuf.Log, log *slog.Logger) *Engine {
	return &Engine{
		fs:     fs,
		client: client,
		opts:   opts,
		live:   live,
		log:    log.With(slog.String("item", "Downloader")),
	}
}

// Download streams url into a sibling .part file next to dest and renames
// it into place on success, falling back to copy-then-delete where rename
// is unavailable. Failed attempts discard the temp file and retry after a
// short fixed delay; once attempts are exhausted a failure is logged.
// Cancellation is honored between attempts only; an abandoned unit
// reports false without a failure entry.
func (e *Engine) Download(ctx context.Context, url, dest string, rs *runstate.RunState) bool {
	if err := e.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		e.live.Failf("[DL] Cannot create dir for %s: %v", filepath.Base(dest), err)

		return false
	}

	tmp := dest + tmpSuffix

	for attempt := 1; attempt <= e.opts.Retries && !rs.Cancelled(); attempt++ {
		e.fs.Remove(tmp)

		f, err := e.fs.Create(tmp)
		if err != nil {
			e.live.Failf("[DL] Cannot open for writing: %s", tmp)

			return false
		}

		resp, err := e.client.Fetch(ctx, url, e.opts.Timeout, f)
		f.Close()

		if rs.Cancelled() {
			e.fs.Remove(tmp)

			return false
		}

		if err == nil && resp.Status >= 200 && resp.Status < 300 {
			if err := e.commit(tmp, dest); err != nil {
				e.live.Failf("[DL] Cannot move into place: %s (%v)", filepath.Base(dest), err)
				e.fs.Remove(tmp)

				return false
			}
			e.log.Info("Downloaded", slog.String("name", filepath.Base(dest)), slog.String("url", url))

			return true
		}

		e.fs.Remove(tmp)

		if attempt < e.opts.Retries {
			e.live.Pushf("[Retry %d/%d] %s", attempt, e.opts.Retries, filepath.Base(dest))
			time.Sleep(retryDelay)
		} else {
			e.live.Failf("[DL] Failed: %s (%s)", filepath.Base(dest), url)
			e.log.Warn("Download failed", slog.String("url", url), slog.Any("error", err))
		}
	}

	return false
}

// commit renames tmp over dest. The copy fallback is best effort and not
// crash-atomic.
func (e *Engine) commit(tmp, dest string) error {
	if err := e.fs.Rename(tmp, dest); err == nil {
		return nil
	}

	in, err := e.fs.Open(tmp)
	if err != nil {
		return err
	}

	out, err := e.fs.Create(dest)
	if err != nil {
		in.Close()

		return err
	}

	_, err = io.Copy(out, in)
	in.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return e.fs.Remove(tmp)
}
