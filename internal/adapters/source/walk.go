package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs are directories never recursed into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".pmatch":      true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// WalkOptions filters the files returned by Walk.
type WalkOptions struct {
	Include    string // base-name glob; empty = all files
	Exclude    string // base-name glob of files to skip
	ExcludeDir string // base-name glob of directories to skip
}

// Walk returns the regular files under root, sorted. Unreadable entries are
// skipped. A root that is a file yields just that file.
func Walk(root string, opts WalkOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.keepDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if opts.keepFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Keep reports whether Walk would return the file at rel, a path relative to
// the walked root. Every directory on the way must pass the directory filters.
// Paths that leave the root are never kept.
func (o WalkOptions) Keep(rel string) bool {
	rel = filepath.Clean(rel)
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir == ".." || !o.keepDir(dir) {
			return false
		}
	}
	return parts[len(parts)-1] != ".." && o.keepFile(parts[len(parts)-1])
}

func (o WalkOptions) keepDir(name string) bool {
	return !skipDirs[name] && !globMatch(o.ExcludeDir, name)
}

func (o WalkOptions) keepFile(name string) bool {
	if o.Include != "" && !globMatch(o.Include, name) {
		return false
	}
	return !globMatch(o.Exclude, name)
}

func globMatch(pattern, name string) bool {
	if pattern == "" {
		return false
	}
	ok, _ := filepath.Match(pattern, name)
	return ok
}
