// Package workspace abstracts working-tree file I/O behind a narrow
// interface so the core can be tested without touching the filesystem.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Workspace is the working-tree collaborator the core reads and writes
// through. Paths are relative to the repository root, slash-separated.
type Workspace interface {
	ReadFile(path string) (string, bool, error)
	WriteFile(path, content string) error
	RemoveFile(path string) error
	ListFiles() ([]string, error)
}

// Dir is the filesystem implementation rooted at a repository root.
type Dir struct {
	root string
	// skipDirs are directory names excluded from scans (repository
	// metadata lives here, not user files).
	skipDirs map[string]bool
}

// NewDir creates a workspace over the given root directory. Named
// directories (e.g. ".fvc") are excluded from file listings.
func NewDir(root string, skipDirs ...string) *Dir {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	return &Dir{root: root, skipDirs: skip}
}

// Verify that *Dir implements Workspace at compile time
var _ Workspace = (*Dir)(nil)

// resolve maps a repository-relative path to an absolute one, refusing
// paths that would escape the root.
func (d *Dir) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path not allowed: %s", path)
	}
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes repository root: %s", path)
	}
	return filepath.Join(d.root, cleaned), nil
}

// ReadFile returns a file's content and whether it exists.
func (d *Dir) ReadFile(path string) (string, bool, error) {
	abs, err := d.resolve(path)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), true, nil
}

// WriteFile writes a file, creating parent directories as needed.
func (d *Dir) WriteFile(path, content string) error {
	abs, err := d.resolve(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RemoveFile deletes a file. Removing a missing file is a no-op.
func (d *Dir) RemoveFile(path string) error {
	abs, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// ListFiles returns every file under the root (skip directories
// excluded), as sorted slash-separated relative paths.
func (d *Dir) ListFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != d.root && d.skipDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan working tree: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
