package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size bytes of
// filler. It stands in for compressed downloads whose content is never
// decoded natively. A size below one writes a single byte.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()

	if size < 1 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xFF}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
