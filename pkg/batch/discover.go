package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidRoot is returned when the input root does not exist or is not
// a directory. Fatal for the run; never retried.
var ErrInvalidRoot = errors.New("invalid input root")

// Discoverer enumerates input documents under a root directory. It holds
// no walk state: every Walk call re-walks the filesystem, so the sequence
// is restartable per call and never materialized in memory.
type Discoverer struct {
	// Root is the directory to walk recursively.
	Root string

	// Ext is the document extension to match, case-insensitive.
	// Defaults to ".pdf".
	Ext string
}

// NewDiscoverer creates a discoverer for PDF documents under root.
func NewDiscoverer(root string) *Discoverer {
	return &Discoverer{Root: root, Ext: ".pdf"}
}

// Walk streams every matching regular file path to fn in filesystem
// traversal order. An error from fn stops the walk and is propagated.
func (d *Discoverer) Walk(fn func(path string) error) error {
	info, err := os.Stat(d.Root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidRoot, d.Root)
	}

	ext := d.Ext
	if ext == "" {
		ext = ".pdf"
	}

	return filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			return nil
		}
		return fn(path)
	})
}
