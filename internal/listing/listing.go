// Package listing extracts downloadable map references from FastDL
// directory-listing documents. The documents are treated as opaque HTML:
// only anchor href values matter, and no entity decoding is performed.
package listing

import (
	"regexp"
	"strings"
)

var hrefRe = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)

// IsMapFile reports whether name carries one of the recognized suffixes:
// .bsp (map) or .bz2 (compressed archive). Case-insensitive.
func IsMapFile(name string) bool {
	low := strings.ToLower(name)

	return strings.HasSuffix(low, ".bsp") || strings.HasSuffix(low, ".bz2")
}

// ExtractMapLinks scans a listing document for anchor references to map
// files and returns them as absolute URLs, deduplicated, in first
// occurrence order. References ending in a separator are sub-directories
// and are skipped.
func ExtractMapLinks(baseURL, document string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, m := range hrefRe.FindAllStringSubmatch(document, -1) {
		href := strings.TrimSpace(m[1])
		if href == "" || strings.HasSuffix(href, "/") {
			continue
		}
		if !IsMapFile(href) {
			continue
		}

		url := JoinURL(baseURL, href)
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}

	return out
}

// JoinURL resolves ref against base. Absolute references pass through
// unchanged; otherwise base and ref are joined with exactly one slash
// between them.
func JoinURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == "" {
		return ref
	}

	baseSlash := strings.HasSuffix(base, "/")
	refSlash := strings.HasPrefix(ref, "/")
	switch {
	case baseSlash && refSlash:
		return base + ref[1:]
	case !baseSlash && !refSlash && ref != "":
		return base + "/" + ref
	default:
		return base + ref
	}
}
