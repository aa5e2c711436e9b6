package batch

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// makeTree creates a directory tree with the given relative files.
func makeTree(t *testing.T, files []string) string {
	t.Helper()

	root := t.TempDir()
	for _, rel := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
	return root
}

func collect(t *testing.T, d *Discoverer) []string {
	t.Helper()

	var paths []string
	if err := d.Walk(func(path string) error {
		paths = append(paths, path)
		return nil
	}); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return paths
}

func TestDiscoverer_Walk(t *testing.T) {
	root := makeTree(t, []string{
		"a.pdf",
		"b.PDF",
		"notes.txt",
		"sub/c.pdf",
		"sub/deep/d.Pdf",
		"sub/image.png",
	})

	paths := collect(t, NewDiscoverer(root))

	if len(paths) != 4 {
		t.Fatalf("Discovered %d files, want 4: %v", len(paths), paths)
	}
	for _, p := range paths {
		if ext := filepath.Ext(p); !containsFold([]string{".pdf", ".PDF", ".Pdf"}, ext) {
			t.Errorf("Unexpected extension in %s", p)
		}
	}
}

func containsFold(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func TestDiscoverer_Restartable(t *testing.T) {
	root := makeTree(t, []string{"a.pdf", "sub/b.pdf", "sub/c.pdf"})
	d := NewDiscoverer(root)

	first := collect(t, d)
	second := collect(t, d)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Re-walk yielded different sequence: %v vs %v", first, second)
	}
}

func TestDiscoverer_InvalidRoot(t *testing.T) {
	tests := []struct {
		name string
		root string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope")},
		{"file not dir", makeTree(t, []string{"a.pdf"}) + "/a.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDiscoverer(tt.root).Walk(func(string) error { return nil })
			if !errors.Is(err, ErrInvalidRoot) {
				t.Errorf("Expected ErrInvalidRoot, got %v", err)
			}
		})
	}
}

func TestDiscoverer_PropagatesCallbackError(t *testing.T) {
	root := makeTree(t, []string{"a.pdf", "b.pdf"})

	sentinel := errors.New("stop")
	err := NewDiscoverer(root).Walk(func(string) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected callback error to propagate, got %v", err)
	}
}

func TestDiscoverer_CustomExtension(t *testing.T) {
	root := makeTree(t, []string{"a.pdf", "b.xml"})

	paths := collect(t, &Discoverer{Root: root, Ext: ".xml"})
	if len(paths) != 1 || filepath.Base(paths[0]) != "b.xml" {
		t.Errorf("Expected only b.xml, got %v", paths)
	}
}
