package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// TouchFile creates path, and any missing parents, holding a minimal PDF
// header.
func TouchFile(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
