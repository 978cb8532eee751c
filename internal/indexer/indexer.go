// Package indexer runs one concurrent index pass over the enabled
// sources: fetch each listing, measure latency, record reachability and
// extract map links.
package indexer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fastdl/mapsync/internal/entity"
	"github.com/fastdl/mapsync/internal/httpclient"
	"github.com/fastdl/mapsync/internal/listing"
	"github.com/fastdl/mapsync/internal/logbuf"
	"github.com/fastdl/mapsync/internal/runstate"
)

type Fetcher interface {
	GetText(ctx context.Context, url string, timeout time.Duration) (*httpclient.Response, error)
}

type Options struct {
	// Timeout bounds each listing fetch.
	Timeout time.Duration

	// Workers limits simultaneous fetches.
	Workers int
}

type Indexer struct {
	client Fetcher
	opts   Options
	live   *logbuf.Log
	log    *slog.Logger
}

func New(client Fetcher, opts Options, live *logbuf.Log, log *slog.Logger) *Indexer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Indexer{
		client: client,
		opts:   opts,
		live:   live,
		log:    log.With(slog.String("item", "Indexer")),
	}
}

// Index fetches every source's listing, at most Workers at a time. Each
// worker owns exactly one source and updates its latency and reachability
// unconditionally. Cancellation stops new admissions only; admitted
// fetches run to completion. The result slice is aligned with the input
// order so that downstream tie-breaks stay deterministic; entries skipped
// by cancellation have a nil Source.
func (ix *Indexer) Index(ctx context.Context, sources []*entity.Source, rs *runstate.RunState) []entity.IndexResult {
	rs.Indexing.Begin(len(sources))
	defer rs.Indexing.End()

	results := make([]entity.IndexResult, len(sources))

	var g errgroup.Group
	g.SetLimit(ix.opts.Workers)

	for i, src := range sources {
		if rs.Cancelled() {
			break
		}

		i, src := i, src

		g.Go(func() error {
			ix.indexSource(ctx, src, &results[i])
			rs.Indexing.Step()

			return nil
		})
	}
	g.Wait()

	return results
}

func (ix *Indexer) indexSource(ctx context.Context, src *entity.Source, out *entity.IndexResult) {
	start := time.Now()
	resp, err := ix.client.GetText(ctx, src.URL, ix.opts.Timeout)
	ms := int(time.Since(start).Milliseconds())

	src.LatencyMS = ms
	src.LastOK = err == nil && resp.Status >= 200 && resp.Status < 400

	out.Source = src
	if !src.LastOK {
		if err != nil {
			ix.live.Failf("[IDX] %s failed (%v)", src.URL, err)
		} else {
			ix.live.Failf("[IDX] %s failed (HTTP %d)", src.URL, resp.Status)
		}
		ix.log.Warn("Source unreachable", slog.String("url", src.URL), slog.Any("error", err))

		return
	}

	out.Links = listing.ExtractMapLinks(src.URL, string(resp.Body))
	ix.live.Pushf("[+] %s -> %d file(s) (%dms)", src.URL, len(out.Links), ms)
	ix.log.Info("Source indexed", slog.String("url", src.URL), slog.Int("links", len(out.Links)), slog.Int("latency_ms", ms))
}
