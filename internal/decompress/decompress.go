// Package decompress turns downloaded .bz2 archives back into plain map
// files by streaming them through the bzip2 decoder in fixed-size chunks.
package decompress

import (
	"compress/bzip2"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fastdl/mapsync/internal/logbuf"
	"github.com/fastdl/mapsync/internal/runstate"
)

const chunkSize = 64 * 1024

type Engine struct {
	fs      afero.Fs
	retries int
	live    *logbuf.Log
	log     *slog.Logger
}

func New(retries int, live *logbuf.Log, log *slog.Logger) *Engine {
	return NewWithFS(afero.NewOsFs(), retries, live, log)
}

func NewWithFS(fs afero.Fs, retries int, live *logbuf.Log, log *slog.Logger) *Engine {
	return &Engine{
		fs:      fs,
		retries: retries,
		live:    live,
		log:     log.With(slog.String("item", "Decompress")),
	}
}

// Decompress streams archive into out until clean end-of-stream. A decode
// error discards the partial output and retries; exhausting the attempts
// logs a failure. Cancellation is checked at chunk granularity; an
// abandoned unit discards its partial output and is not treated as
// failed.
func (e *Engine) Decompress(archive, out string, rs *runstate.RunState) bool {
	for attempt := 1; attempt <= e.retries && !rs.Cancelled(); attempt++ {
		ok, cancelled := e.attempt(archive, out, rs)
		if ok {
			e.log.Info("Decompressed", slog.String("name", filepath.Base(out)))

			return true
		}
		if cancelled {
			return false
		}

		e.fs.Remove(out)

		if attempt == e.retries {
			e.live.Failf("[BZ2] Failed: %s", filepath.Base(archive))
			e.log.Warn("Decompression failed", slog.String("archive", archive))

			return false
		}
	}

	return false
}

func (e *Engine) attempt(archive, out string, rs *runstate.RunState) (ok, cancelled bool) {
	in, err := e.fs.Open(archive)
	if err != nil {
		e.live.Failf("[BZ2] Open failed: %s", filepath.Base(archive))

		return false, false
	}
	defer in.Close()

	dst, err := e.fs.Create(out)
	if err != nil {
		e.live.Failf("[BZ2] Open failed: %s", filepath.Base(out))

		return false, false
	}

	r := bzip2.NewReader(in)
	buf := make([]byte, chunkSize)

	for {
		if rs.Cancelled() {
			dst.Close()
			e.fs.Remove(out)

			return false, true
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				dst.Close()

				return false, false
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			dst.Close()

			return false, false
		}
	}

	if err := dst.Close(); err != nil {
		return false, false
	}

	return true, false
}
