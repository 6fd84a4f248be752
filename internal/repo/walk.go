package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnore lists directory and file names skipped during a walk.
var DefaultIgnore = []string{"node_modules", ".git", "dist", "build", "vendor", ".venv"}

// CollectFiles returns the absolute paths of all regular files under root.
// A file is skipped when any component of its path relative to root is in
// ignore, or when it is larger than maxBytes. Unreadable entries are skipped.
func CollectFiles(root string, ignore []string, maxBytes int64) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	skip := toSet(ignore)
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if skip[d.Name()] {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Follows symlinks; links to directories are not descended.
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			return nil
		}
		if fi.Size() > maxBytes {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// Eligible reports whether an existing file passes the same ignore and size
// filters as CollectFiles.
func Eligible(root, path string, ignore []string, maxBytes int64) bool {
	if Ignored(root, path, ignore) {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return fi.Size() <= maxBytes
}

// Ignored reports whether any component of path relative to root is in
// ignore.
func Ignored(root, path string, ignore []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	skip := toSet(ignore)
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skip[part] {
			return true
		}
	}
	return false
}

// MaxBytes converts a size in megabytes to bytes.
func MaxBytes(mb int) int64 {
	return int64(mb) * 1024 * 1024
}

// Ext returns the lowercased final suffix of a file name. A leading dot does
// not start a suffix, so ".env" has none while "app.env" has ".env".
func Ext(path string) string {
	name := strings.TrimLeft(filepath.Base(path), ".")
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i:])
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
