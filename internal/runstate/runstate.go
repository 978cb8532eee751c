package runstate

import (
	"sync/atomic"

	"github.com/fastdl/mapsync/internal/entity"
)

// PhaseProgress tracks one pipeline stage. All fields are atomic so that
// observers may poll it while workers advance it.
type PhaseProgress struct {
	running atomic.Bool
	done    atomic.Int64
	total   atomic.Int64
}

// Begin resets the counters and marks the stage running. Total is set once
// at stage entry and never changes while the stage is in flight.
func (p *PhaseProgress) Begin(total int) {
	p.done.Store(0)
	p.total.Store(int64(total))
	p.running.Store(true)
}

// Step records one completed unit, success or failure.
func (p *PhaseProgress) Step() {
	p.done.Add(1)
}

// End marks the stage finished.
func (p *PhaseProgress) End() {
	p.running.Store(false)
}

// Snapshot returns the current running flag and done/total counters.
func (p *PhaseProgress) Snapshot() (running bool, done, total int) {
	return p.running.Load(), int(p.done.Load()), int(p.total.Load())
}

func (p *PhaseProgress) reset() {
	p.running.Store(false)
	p.done.Store(0)
	p.total.Store(0)
}

// RunState is the observable state of one pipeline invocation: the four
// phase counters, the last computed summary and the shared cancel flag.
type RunState struct {
	cancel atomic.Bool

	Indexing      PhaseProgress
	Downloading   PhaseProgress
	Decompressing PhaseProgress
	Deleting      PhaseProgress

	remoteUnique atomic.Int64
	afterFilters atomic.Int64
	alreadyHave  atomic.Int64
	toDownload   atomic.Int64
}

func New() *RunState {
	return &RunState{}
}

// Reset clears the cancel flag and all phase counters. Called once at the
// entry of every run, never while a run is in flight.
func (rs *RunState) Reset() {
	rs.cancel.Store(false)
	rs.Indexing.reset()
	rs.Downloading.reset()
	rs.Decompressing.reset()
	rs.Deleting.reset()
}

// Cancel requests cooperative cancellation of the current run.
func (rs *RunState) Cancel() {
	rs.cancel.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (rs *RunState) Cancelled() bool {
	return rs.cancel.Load()
}

// SetSummary stores the counters of the last index pass.
func (rs *RunState) SetSummary(s entity.RunSummary) {
	rs.remoteUnique.Store(int64(s.RemoteUnique))
	rs.afterFilters.Store(int64(s.AfterFilters))
	rs.alreadyHave.Store(int64(s.AlreadyHave))
	rs.toDownload.Store(int64(s.ToDownload))
}

// Summary returns a read-only snapshot of the last index pass counters.
func (rs *RunState) Summary() entity.RunSummary {
	return entity.RunSummary{
		RemoteUnique: int(rs.remoteUnique.Load()),
		AfterFilters: int(rs.afterFilters.Load()),
		AlreadyHave:  int(rs.alreadyHave.Load()),
		ToDownload:   int(rs.toDownload.Load()),
	}
}
