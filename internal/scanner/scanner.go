// Package scanner enumerates map files already present under the local
// install dir.
package scanner

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fastdl/mapsync/internal/listing"
)

// Roots searched below the install dir. Downloads land in the second one.
var roots = []string{
	"maps",
	filepath.Join("download", "maps"),
}

type Scanner struct {
	fs afero.Fs
}

func New() *Scanner {
	return NewWithFS(afero.NewOsFs())
}

func NewWithFS(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Existing returns the set of bare filenames of map files found under the
// install dir's maps and download/maps roots. Duplicate names across the
// two roots collapse into one entry; missing roots yield an empty result.
func (s *Scanner) Existing(installDir string) map[string]struct{} {
	existing := make(map[string]struct{})

	for _, root := range roots {
		dir := filepath.Join(installDir, root)
		if ok, err := afero.DirExists(s.fs, dir); err != nil || !ok {
			continue
		}

		afero.Walk(s.fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || !info.Mode().IsRegular() {
				return nil
			}
			if listing.IsMapFile(info.Name()) {
				existing[info.Name()] = struct{}{}
			}

			return nil
		})
	}

	return existing
}
