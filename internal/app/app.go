package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/fastdl/mapsync/internal/config"
	"github.com/fastdl/mapsync/internal/decompress"
	"github.com/fastdl/mapsync/internal/downloader"
	"github.com/fastdl/mapsync/internal/entity"
	"github.com/fastdl/mapsync/internal/httpclient"
	"github.com/fastdl/mapsync/internal/indexer"
	"github.com/fastdl/mapsync/internal/logbuf"
	"github.com/fastdl/mapsync/internal/pipeline"
	"github.com/fastdl/mapsync/internal/runstate"
	"github.com/fastdl/mapsync/internal/scanner"
	"github.com/fastdl/mapsync/internal/steam"
	"github.com/fastdl/mapsync/internal/store"
)

const logsDir = "logs"

// App wires the pipeline together for the CLI frontend.
type App struct {
	fs      afero.Fs
	cfg     *config.Settings
	cfgPath string
	sources []*entity.Source
	st      *store.Store
	client  *httpclient.Client
	runner  *pipeline.Runner
	live    *logbuf.Log
	log     *slog.Logger
}

func New(cfgPath, sourcesPath string) (*App, error) {
	return NewWithFS(afero.NewOsFs(), cfgPath, sourcesPath)
}

func NewWithFS(fs afero.Fs, cfgPath, sourcesPath string) (*App, error) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))
	live := logbuf.New()

	cfg, err := config.Load(fs, cfgPath)
	if err != nil {
		// Defaults are already in place; record the parse problem and go on.
		live.Failf("[!] Failed to parse settings (defaults used): %v", err)
		log.Warn("Cannot load settings", slog.Any("error", err))
	}

	st := store.NewWithFS(fs, sourcesPath)
	sources, err := st.Load()
	if err != nil {
		live.Fail("[!] Failed to parse sources (will treat as empty).")
		log.Warn("Cannot load sources", slog.Any("error", err))
	}

	if cfg.InstallDir == "" {
		if dir, ok := steam.FindInstallDir(fs); ok {
			cfg.InstallDir = dir
			live.Pushf("[i] Detected install dir: %s", dir)
		}
	}

	client := httpclient.New(httpclient.DefaultOptions())

	ix := indexer.New(client, indexer.Options{
		Timeout: cfg.IndexTimeout(),
		Workers: cfg.Workers,
	}, live, log)

	dl := downloader.NewWithFS(fs, client, downloader.Options{
		Timeout: cfg.DownloadTimeout(),
		Retries: cfg.Retries,
	}, live, log)

	bz := decompress.NewWithFS(fs, cfg.Retries, live, log)

	runner := pipeline.New(fs, cfg, scanner.NewWithFS(fs), ix, dl, bz, live, log)

	return &App{
		fs:      fs,
		cfg:     cfg,
		cfgPath: cfgPath,
		sources: sources,
		st:      st,
		client:  client,
		runner:  runner,
		live:    live,
		log:     log,
	}, nil
}

// State exposes progress and summary counters for observers.
func (a *App) State() *runstate.RunState {
	return a.runner.State()
}

// Cancel requests cancellation of the active run.
func (a *App) Cancel() {
	a.runner.Cancel()
}

// Index runs an index-only pass and prints the summary.
func (a *App) Index(ctx context.Context) error {
	status, err := a.runner.IndexOnly(ctx, a.sources)
	a.finishRun(status)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	s := a.runner.State().Summary()
	fmt.Printf("Remote unique: %d\nAfter filters: %d\nAlready have: %d\nWould download: %d\n",
		s.RemoteUnique, s.AfterFilters, s.AlreadyHave, s.ToDownload)
	fmt.Printf("Run %s.\n", status)

	return nil
}

// Sync runs the full pipeline: index, download, decompress, cleanup.
func (a *App) Sync(ctx context.Context) error {
	status, err := a.runner.FullSync(ctx, a.sources)
	a.finishRun(status)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Run %s.\n", status)

	return nil
}

// Detect prints the auto-detected install dir.
func (a *App) Detect() error {
	dir, ok := steam.FindInstallDir(a.fs)
	if !ok {
		return fmt.Errorf("cannot find a Half-Life 2 Deathmatch install")
	}

	fmt.Println(dir)

	return nil
}

// Probe issues a HEAD request against every source and prints latencies.
func (a *App) Probe(ctx context.Context) error {
	for _, src := range a.sources {
		resp, err := a.client.Head(ctx, src.URL, a.cfg.HeadTimeout())
		if err != nil {
			fmt.Printf("%-50s unreachable (%v)\n", src.URL, err)

			continue
		}
		fmt.Printf("%-50s HTTP %d, %dms\n", src.URL, resp.Status, resp.Latency.Milliseconds())
	}

	return nil
}

// AddSource registers a new source URL (or re-enables a known one) and
// persists the list.
func (a *App) AddSource(rawURL string) error {
	sources, changed := store.Add(a.sources, rawURL)
	if !changed {
		fmt.Println("Source already present.")

		return nil
	}
	a.sources = sources

	if err := a.st.Save(a.sources); err != nil {
		return err
	}
	fmt.Printf("Added: %s\n", entity.NormalizeURL(rawURL))

	return nil
}

// ListSources prints the known sources with their last-pass state.
func (a *App) ListSources() {
	if len(a.sources) == 0 {
		fmt.Println("No sources.")

		return
	}

	for _, src := range a.sources {
		mark := " "
		if src.Enabled {
			mark = "x"
		}
		badge := "?"
		if src.LastOK {
			badge = fmt.Sprintf("ok %dms", src.LatencyMS)
		}
		fmt.Printf("[%s] %-50s %s\n", mark, src.URL, badge)
	}
}

// finishRun persists source latencies and the session log after every
// run; a failed run still carries useful failure entries.
func (a *App) finishRun(status pipeline.Status) {
	if err := a.st.Save(a.sources); err != nil {
		a.log.Error("Cannot save sources", slog.Any("error", err))
	}

	runID := a.runner.LastRunID()
	if err := a.live.WriteSession(a.fs, logsDir, runID); err != nil {
		a.log.Error("Cannot write session log", slog.Any("error", err))
	}

	a.log.Info("Run finished", slog.String("status", status.String()), slog.String("run_id", runID))
}
