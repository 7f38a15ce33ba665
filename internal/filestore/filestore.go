// Package filestore persists files produced by peers under one output
// directory.
package filestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for names that would resolve outside the root.
var ErrOutsideRoot = errors.New("path escapes output directory")

// Dir writes files below Root. It implements engine.FileWriter.
type Dir struct {
	Root string
}

// New creates the root directory if needed.
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("filestore: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %q: %w", abs, err)
	}
	return &Dir{Root: abs}, nil
}

// Resolve maps name to a path below Root. Absolute names are taken relative
// to Root; names climbing out of Root are rejected.
func (d *Dir) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filestore: empty file name")
	}
	clean := filepath.Clean("/" + filepath.ToSlash(name))
	full := filepath.Join(d.Root, filepath.FromSlash(clean))

	rel, err := filepath.Rel(d.Root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("filestore: %q: %w", name, ErrOutsideRoot)
	}
	return full, nil
}

// WriteFile writes data to name through a temporary file and a rename, so
// readers never observe a partial file.
func (d *Dir) WriteFile(name string, data []byte) error {
	path, err := d.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filestore: create parent of %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".viewsync-*")
	if err != nil {
		return fmt.Errorf("filestore: temp file for %q: %w", name, err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("filestore: rename %q: %w", name, err)
	}

	slog.Debug("file written", "file", path, "length", len(data))
	return nil
}
