package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// WriteClassDir lays entries out as a class directory under dir/name.
// Entry names are slash separated paths such as "p/q/A.class".
func WriteClassDir(t *testing.T, dir, name string, entries map[string][]byte) string {
	t.Helper()
	root := filepath.Join(dir, name)
	for entry, data := range entries {
		path := filepath.Join(root, filepath.FromSlash(entry))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", entry, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", entry, err)
		}
	}
	return root
}
