// Package store persists the source list. The on-disk format is JSON, one
// object per source, under a top-level "sources" key.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/fastdl/mapsync/internal/entity"
)

type sourcesFile struct {
	Sources []*entity.Source `json:"sources"`
}

type Store struct {
	fs   afero.Fs
	path string
}

func New(path string) *Store {
	return NewWithFS(afero.NewOsFs(), path)
}

func NewWithFS(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Load reads the source list. A missing file is created empty; entries
// have their URLs normalized and blank ones are dropped. A malformed file
// is treated as empty and the parse error is returned so the caller can
// log it.
func (s *Store) Load() ([]*entity.Source, error) {
	ok, err := afero.Exists(s.fs, s.path)
	if err == nil && !ok {
		if werr := s.Save(nil); werr != nil {
			return nil, werr
		}

		return nil, nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read sources: %w", err)
	}

	var f sourcesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse sources: %w", err)
	}

	var out []*entity.Source
	for _, src := range f.Sources {
		src.URL = entity.NormalizeURL(src.URL)
		if src.URL != "" {
			out = append(out, src)
		}
	}

	return out, nil
}

// Save writes the source list, including last-pass latency and
// reachability so the next run can select sources before probing.
func (s *Store) Save(sources []*entity.Source) error {
	f := sourcesFile{Sources: sources}
	if f.Sources == nil {
		f.Sources = []*entity.Source{}
	}

	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal sources: %w", err)
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write sources: %w", err)
	}

	return nil
}

// Add appends a new source or re-enables an existing one with the same
// normalized URL. It reports whether the list changed.
func Add(sources []*entity.Source, rawURL string) ([]*entity.Source, bool) {
	url := entity.NormalizeURL(rawURL)
	if url == "" {
		return sources, false
	}

	for _, src := range sources {
		if src.URL == url {
			if src.Enabled {
				return sources, false
			}
			src.Enabled = true

			return sources, true
		}
	}

	return append(sources, &entity.Source{
		URL:       url,
		Enabled:   true,
		LatencyMS: entity.UnknownLatency,
	}), true
}
