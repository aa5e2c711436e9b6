// Package writer persists extraction results using the output naming
// convention: source extension replaced by the structured-output suffix,
// either beside the source file or in a designated output directory.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix is the structured-output suffix appended to the source
// base name.
const DefaultSuffix = ".tei.xml"

// Writer computes destination paths and persists result bodies.
type Writer struct {
	// OutputDir, when set, receives all outputs. Otherwise each output
	// lands beside its source file.
	OutputDir string

	// Force overwrites existing outputs instead of skipping the file.
	Force bool

	// Suffix replaces the source extension. Defaults to DefaultSuffix.
	Suffix string
}

// DestPath computes the destination for one source file.
func (w *Writer) DestPath(src string) string {
	suffix := w.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	dir := w.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, stem+suffix)
}

// ShouldSkip reports whether src's output already exists and Force is off.
// Callers must consult this before submitting the file, so an already
// processed document costs no network call.
func (w *Writer) ShouldSkip(src string) (dest string, skip bool) {
	dest = w.DestPath(src)
	if w.Force {
		return dest, false
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, true
	}
	return dest, false
}

// Write persists body to dest atomically: the full body lands in a
// temporary file in the destination directory, which is renamed over dest
// only after a successful close. A failed write never leaves a partial
// file that a later run would mistake for a completed output.
func (w *Writer) Write(dest string, body []byte) error {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close output: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}
