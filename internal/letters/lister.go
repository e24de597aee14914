package letters

import (
	"fmt"
	"os"
	"strings"
)

const candidateExt = ".pdf"

// IsCandidate reports whether a directory entry name is eligible for import.
// The extension check is case-sensitive and hidden files are ignored.
func IsCandidate(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, candidateExt)
}

// FilterCandidates keeps eligible names, preserving order.
func FilterCandidates(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if IsCandidate(name) {
			out = append(out, name)
		}
	}
	return out
}

// ListCandidates returns the eligible file names in dir in directory listing
// order. Subdirectories are skipped even when their names look like PDFs.
func ListCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read letters directory %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return FilterCandidates(names), nil
}
