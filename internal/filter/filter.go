// Package filter evaluates the user's include/exclude substring rules
// against remote filenames.
package filter

import "strings"

// Normalize splits a raw comma-separated filter string into trimmed,
// lower-cased, non-empty terms.
func Normalize(raw string) []string {
	var terms []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			terms = append(terms, part)
		}
	}

	return terms
}

// Passes reports whether filename survives the filters: with non-empty
// includes the name must contain at least one include term, and it must
// contain none of the exclude terms. Excludes are applied after includes.
// Comparison is case-insensitive.
func Passes(filename string, includes, excludes []string) bool {
	name := strings.ToLower(filename)

	if len(includes) > 0 {
		any := false
		for _, t := range includes {
			if strings.Contains(name, t) {
				any = true

				break
			}
		}
		if !any {
			return false
		}
	}

	for _, t := range excludes {
		if strings.Contains(name, t) {
			return false
		}
	}

	return true
}
