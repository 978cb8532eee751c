// Package steam locates the local Half-Life 2: Deathmatch install by
// probing the OS-conventional Steam roots and any extra library folders
// declared in libraryfolders.vdf.
package steam

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

var vdfPathRe = regexp.MustCompile(`(?i)"path"\s*"([^"]+)"`)

// FindInstallDir returns the hl2mp directory of the first Steam library
// that contains one, or false if none is found.
func FindInstallDir(fs afero.Fs) (string, bool) {
	var steamapps []string
	for _, root := range candidateRoots() {
		steamapps = append(steamapps, root)
		steamapps = append(steamapps, libraryFolders(fs, root)...)
	}

	for _, dir := range steamapps {
		hl2mp := filepath.Join(dir, "common", "Half-Life 2 Deathmatch", "hl2mp")

		maps, _ := afero.DirExists(fs, filepath.Join(hl2mp, "maps"))
		download, _ := afero.DirExists(fs, filepath.Join(hl2mp, "download"))
		if maps || download {
			return hl2mp, true
		}
	}

	return "", false
}

func candidateRoots() []string {
	if runtime.GOOS == "windows" {
		var roots []string
		if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
			roots = append(roots, filepath.Join(pf, "Steam", "steamapps"))
		}
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			roots = append(roots, filepath.Join(pf, "Steam", "steamapps"))
		}

		return roots
	}

	home := os.Getenv("HOME")

	return []string{
		filepath.Join(home, ".steam", "steam", "steamapps"),
		filepath.Join(home, ".local", "share", "Steam", "steamapps"),
		filepath.Join(home, "Library", "Application Support", "Steam", "steamapps"),
	}
}

// libraryFolders extracts additional steamapps roots from the
// libraryfolders.vdf next to root. VDF is scraped, not parsed: only the
// "path" values matter.
func libraryFolders(fs afero.Fs, root string) []string {
	data, err := afero.ReadFile(fs, filepath.Join(root, "libraryfolders.vdf"))
	if err != nil {
		return nil
	}

	var out []string
	for _, m := range vdfPathRe.FindAllStringSubmatch(string(data), -1) {
		p := strings.ReplaceAll(m[1], `\\`, `/`)
		out = append(out, filepath.Join(filepath.FromSlash(p), "steamapps"))
	}

	return out
}
