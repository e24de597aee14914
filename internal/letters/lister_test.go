package letters_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"auditimport/internal/letters"
	"auditimport/internal/testsupport"
)

func TestFilterCandidates(t *testing.T) {
	names := []string{"78254_LetterA.pdf", ".DS_Store", "99999_Other.pdf", "1_B.pdf", ".hidden_1.pdf", "2_C.PDF", "3_D.pdf.bak", ".pdf"}
	got := letters.FilterCandidates(names)
	want := []string{"78254_LetterA.pdf", "99999_Other.pdf", "1_B.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterCandidates = %v, want %v", got, want)
	}
}

func TestListCandidatesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	testsupport.TouchFile(t, filepath.Join(dir, "1_B.pdf"))
	testsupport.TouchFile(t, filepath.Join(dir, ".DS_Store"))
	testsupport.TouchFile(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "2_folder.pdf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := letters.ListCandidates(dir)
	if err != nil {
		t.Fatalf("ListCandidates returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"1_B.pdf"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}
}

func TestListCandidatesMissingDirectory(t *testing.T) {
	if _, err := letters.ListCandidates(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
