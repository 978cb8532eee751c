// Package pipeline sequences the synchronization stages: local scan,
// source indexing, planning, download, decompression and cleanup. Stages
// run strictly one after another; units inside a stage fan out up to the
// configured worker bound.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/fastdl/mapsync/internal/common"
	"github.com/fastdl/mapsync/internal/config"
	"github.com/fastdl/mapsync/internal/entity"
	"github.com/fastdl/mapsync/internal/filter"
	"github.com/fastdl/mapsync/internal/listing"
	"github.com/fastdl/mapsync/internal/logbuf"
	"github.com/fastdl/mapsync/internal/planner"
	"github.com/fastdl/mapsync/internal/runstate"
)

// Status is the terminal state of a run. Cancellation is not a failure:
// it produces no failure-log entries.
type Status int

const (
	StatusOK Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	return [...]string{"ok", "cancelled", "failed"}[s]
}

type LocalScanner interface {
	Existing(installDir string) map[string]struct{}
}

type SourceIndexer interface {
	Index(ctx context.Context, sources []*entity.Source, rs *runstate.RunState) []entity.IndexResult
}

type Downloader interface {
	Download(ctx context.Context, url, dest string, rs *runstate.RunState) bool
}

type Decompressor interface {
	Decompress(archive, out string, rs *runstate.RunState) bool
}

type Runner struct {
	running   atomic.Bool
	lastRunID atomic.Value

	fs      afero.Fs
	cfg     *config.Settings
	scanner LocalScanner
	indexer SourceIndexer
	dl      Downloader
	bz      Decompressor
	rs      *runstate.RunState
	live    *logbuf.Log
	log     *slog.Logger
}

func New(fs afero.Fs, cfg *config.Settings, scanner LocalScanner, indexer SourceIndexer,
	dl Downloader, bz Decompressor, live *logbuf.Log, log *slog.Logger) *Runner {
	return &Runner{
		fs:      fs,
		cfg:     cfg,
		scanner: scanner,
		indexer: indexer,
		dl:      dl,
		bz:      bz,
		rs:      runstate.New(),
		live:    live,
		log:     log.With(slog.String("item", "Runner")),
	}
}

// State exposes the progress counters and summary for observers.
func (r *Runner) State() *runstate.RunState {
	return r.rs
}

// Cancel requests cooperative cancellation of the active run.
func (r *Runner) Cancel() {
	r.rs.Cancel()
}

// LastRunID returns the short identifier of the most recent run.
func (r *Runner) LastRunID() string {
	if id, ok := r.lastRunID.Load().(string); ok {
		return id
	}

	return ""
}

// IndexOnly scans the local inventory, indexes every enabled source and
// stores the run summary. No downloads are performed.
func (r *Runner) IndexOnly(ctx context.Context, sources []*entity.Source) (Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		return StatusFailed, common.ErrRunAlreadyActive
	}
	defer r.running.Store(false)

	run, err := r.prepare(sources)
	if err != nil {
		return StatusFailed, err
	}

	r.index(ctx, run)

	r.live.Push("[i] Index complete.")
	r.logSummary(run.plan.Summary)

	if r.rs.Cancelled() {
		return StatusCancelled, nil
	}

	return StatusOK, nil
}

// FullSync indexes like IndexOnly, then downloads every missing file from
// its best source, decompresses the archives in the download cache when
// enabled, and finally deletes the archives when enabled.
func (r *Runner) FullSync(ctx context.Context, sources []*entity.Source) (Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		return StatusFailed, common.ErrRunAlreadyActive
	}
	defer r.running.Store(false)

	run, err := r.prepare(sources)
	if err != nil {
		return StatusFailed, err
	}

	// Pre-flight: the destination must exist before any transfer starts.
	if err := r.fs.MkdirAll(run.downloadDir, 0o755); err != nil {
		r.live.Failf("[!] Failed to create download/maps: %v", err)

		return StatusFailed, err
	}

	r.index(ctx, run)
	r.logSummary(run.plan.Summary)

	r.download(ctx, run)

	if r.rs.Cancelled() {
		r.live.Push("[i] Cancelled.")

		return StatusCancelled, nil
	}

	if r.cfg.Decompress {
		archives := r.listArchives(run.downloadDir)
		r.decompress(run, archives)

		if r.cfg.DeleteArchives && !r.rs.Cancelled() {
			r.cleanup(archives)
		}
	}

	if r.rs.Cancelled() {
		r.live.Push("[i] Cancelled.")

		return StatusCancelled, nil
	}

	r.live.Push("[i] Done.")

	return StatusOK, nil
}

// run carries everything one invocation needs, so overlapping invocations
// can never share intermediate state.
type run struct {
	id          string
	enabled     []*entity.Source
	includes    []string
	excludes    []string
	existing    map[string]struct{}
	downloadDir string
	avail       planner.Availability
	plan        *planner.Plan
}

func (r *Runner) prepare(sources []*entity.Source) (*run, error) {
	r.rs.Reset()

	run := &run{
		id:          uuid.NewString()[:8],
		includes:    filter.Normalize(r.cfg.IncludeFilters),
		excludes:    filter.Normalize(r.cfg.ExcludeFilters),
		downloadDir: filepath.Join(r.cfg.InstallDir, "download", "maps"),
	}
	r.lastRunID.Store(run.id)
	r.log.Info("Run started", slog.String("run_id", run.id))

	if ok, err := afero.DirExists(r.fs, r.cfg.InstallDir); r.cfg.InstallDir == "" || err != nil || !ok {
		r.live.Fail("[!] Install path invalid.")

		return nil, common.ErrInvalidInstallDir
	}

	for _, src := range sources {
		if src.Enabled {
			run.enabled = append(run.enabled, src)
		}
	}
	if len(run.enabled) == 0 {
		r.live.Fail("[!] No enabled sources.")

		return nil, common.ErrNoEnabledSources
	}

	run.existing = r.scanner.Existing(r.cfg.InstallDir)
	r.live.Pushf("[i] Existing map files found: %d", len(run.existing))

	return run, nil
}

func (r *Runner) index(ctx context.Context, run *run) {
	r.live.Push("[i] Indexing sources...")

	results := r.indexer.Index(ctx, run.enabled, r.rs)

	run.avail = planner.Build(results)
	run.plan = planner.Compute(run.avail, run.includes, run.excludes, run.existing)
	r.rs.SetSummary(run.plan.Summary)
}

func (r *Runner) download(ctx context.Context, run *run) {
	r.rs.Downloading.Begin(len(run.plan.ToGet))
	defer r.rs.Downloading.End()

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for _, name := range run.plan.ToGet {
		if r.rs.Cancelled() {
			break
		}

		name := name

		g.Go(func() error {
			defer r.rs.Downloading.Step()

			best := planner.PickSource(run.avail[name])
			if best == nil {
				r.live.Failf("[DL] No source for: %s", name)

				return nil
			}

			url := listing.JoinURL(best.URL, name)
			r.dl.Download(ctx, url, filepath.Join(run.downloadDir, name), r.rs)

			return nil
		})
	}
	g.Wait()
}

// listArchives returns every .bz2 file currently in the download cache,
// not only the ones fetched this run.
func (r *Runner) listArchives(dir string) []string {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		r.live.Failf("[BZ2] Cannot list %s: %v", dir, err)

		return nil
	}

	var archives []string
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".bz2") {
			archives = append(archives, filepath.Join(dir, e.Name()))
		}
	}

	return archives
}

func (r *Runner) decompress(run *run, archives []string) {
	r.rs.Decompressing.Begin(len(archives))
	defer r.rs.Decompressing.End()

	r.live.Pushf("[i] Decompressing .bz2: %d", len(archives))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for _, archive := range archives {
		if r.rs.Cancelled() {
			break
		}

		archive := archive

		g.Go(func() error {
			defer r.rs.Decompressing.Step()

			out := strings.TrimSuffix(archive, filepath.Ext(archive))
			r.bz.Decompress(archive, out, r.rs)

			return nil
		})
	}
	g.Wait()
}

// cleanup deletes the archives sequentially. Deletion failures are logged
// and do not abort the stage.
func (r *Runner) cleanup(archives []string) {
	r.rs.Deleting.Begin(len(archives))
	defer r.rs.Deleting.End()

	r.live.Push("[i] Deleting .bz2 files...")

	for _, archive := range archives {
		if r.rs.Cancelled() {
			break
		}

		if err := r.fs.Remove(archive); err != nil {
			r.live.Failf("[DEL] %s -> %v", filepath.Base(archive), err)
		}
		r.rs.Deleting.Step()
	}
}

func (r *Runner) logSummary(s entity.RunSummary) {
	r.live.Pushf("[i] Remote unique files: %d", s.RemoteUnique)
	r.live.Pushf("[i] After filters: %d", s.AfterFilters)
	r.live.Pushf("[i] Already present locally: %d", s.AlreadyHave)
	r.live.Pushf("[i] Would download: %d", s.ToDownload)
}
