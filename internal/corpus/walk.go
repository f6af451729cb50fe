package corpus

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/aiir/internal/artifact"
)

// FindRepos returns the direct subdirectories of root that contain a .git
// directory, sorted by path.
func FindRepos(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var repos []string
	for _, e := range entries {
		p := filepath.Join(root, e.Name())
		st, err := os.Stat(p)
		if err != nil || !st.IsDir() {
			continue
		}
		if g, err := os.Stat(filepath.Join(p, ".git")); err == nil && g.IsDir() {
			repos = append(repos, p)
		}
	}
	slices.Sort(repos)
	return repos, nil
}

// WalkFiles lists the regular files under dir, skipping excluded
// directories (artifact.SkipDir), sorted by full path. Symlinks to regular
// files are listed; symlinked directories are not descended and dangling
// links are skipped. With langOnly only
// files of a supported language are listed.
func WalkFiles(dir string, langOnly bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && artifact.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			st, err := os.Stat(p)
			if err != nil || !st.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if langOnly && !artifact.Supported(d.Name()) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
