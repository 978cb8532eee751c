package entity

import "strings"

// UnknownLatency marks a source that has never been probed successfully.
const UnknownLatency = -1

// Source is a remote HTTP endpoint serving a directory listing of map files.
// LatencyMS and LastOK are written by exactly one indexing worker per pass;
// the rest of the fields are immutable while a run is in flight.
type Source struct {
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	LatencyMS int    `json:"last_latency_ms"`
	LastOK    bool   `json:"last_ok"`
}

// NormalizeURL trims whitespace and guarantees exactly one trailing slash,
// so that joining a filename onto the URL never doubles separators.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return url
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}

	return url
}

// IndexResult is the outcome of one listing fetch. It lives for a single
// pass and is never persisted.
type IndexResult struct {
	Source *Source
	Links  []string
}
