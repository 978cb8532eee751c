// Package planner merges per-source index results into the availability
// map, selects the best offering source per file and computes the run
// summary.
package planner

import (
	"path"
	"sort"

	"github.com/fastdl/mapsync/internal/entity"
	"github.com/fastdl/mapsync/internal/filter"
)

// latencySentinel stands in for sources that have no measured latency;
// they lose to any source with a real measurement.
const latencySentinel = 1_000_000

// Availability maps a bare filename to every source that offers it,
// in source input order. Rebuilt from scratch every pass.
type Availability map[string][]*entity.Source

// Build merges index results into an availability map, keeping only
// entries from sources that are enabled and were reachable this pass.
func Build(results []entity.IndexResult) Availability {
	avail := make(Availability)
	for _, res := range results {
		if res.Source == nil || !res.Source.Enabled || !res.Source.LastOK {
			continue
		}
		for _, link := range res.Links {
			name := path.Base(link)
			avail[name] = append(avail[name], res.Source)
		}
	}

	return avail
}

// PickSource returns the offering source with the lowest measured latency.
// Unknown latencies count as latencySentinel. Ties keep the earliest
// source in input order, which makes selection deterministic for a fixed
// source list.
func PickSource(candidates []*entity.Source) *entity.Source {
	var best *entity.Source
	for _, src := range candidates {
		if best == nil || effectiveLatency(src) < effectiveLatency(best) {
			best = src
		}
	}

	return best
}

func effectiveLatency(src *entity.Source) int {
	if src.LatencyMS >= 0 {
		return src.LatencyMS
	}

	return latencySentinel
}

// Plan is the outcome of one index pass: the summary counters and the
// filenames still missing locally, in sorted order.
type Plan struct {
	Summary entity.RunSummary
	ToGet   []string
}

// Compute applies the filters and the local inventory to the availability
// map. The worklist is sorted so runs over identical inputs behave
// identically regardless of map iteration order.
func Compute(avail Availability, includes, excludes []string, existing map[string]struct{}) *Plan {
	plan := &Plan{}
	plan.Summary.RemoteUnique = len(avail)

	names := make([]string, 0, len(avail))
	for name := range avail {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !filter.Passes(name, includes, excludes) {
			continue
		}
		plan.Summary.AfterFilters++

		if _, ok := existing[name]; ok {
			plan.Summary.AlreadyHave++
		} else {
			plan.Summary.ToDownload++
			plan.ToGet = append(plan.ToGet, name)
		}
	}

	return plan
}
