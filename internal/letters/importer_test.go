package letters_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"auditimport/internal/letters"
	"auditimport/internal/services"
	"auditimport/internal/testsupport"
)

type memStore struct {
	mu       sync.Mutex
	records  []letters.Record
	entries  map[string][]letters.Entry
	query    letters.RecordQuery
	listErr  error
	writeErr error
	writes   int
}

func newMemStore(records ...letters.Record) *memStore {
	return &memStore{records: records, entries: map[string][]letters.Entry{}}
}

func (s *memStore) ListRecords(_ context.Context, query letters.RecordQuery) ([]letters.Record, error) {
	s.query = query
	return s.records, s.listErr
}

func (s *memStore) AuditEntries(_ context.Context, handle, field string) ([]letters.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]letters.Entry(nil), s.entries[handle+"/"+field]...), nil
}

func (s *memStore) SetAuditEntries(_ context.Context, handle, field string, entries []letters.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.entries[handle+"/"+field] = entries
	return nil
}

type stubMedia struct {
	mu     sync.Mutex
	next   int
	fail   map[string]error
	paths  []string
	assets map[string]string
}

func (m *stubMedia) Import(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	if err, ok := m.fail[filepath.Base(path)]; ok {
		return "", err
	}
	if asset, ok := m.assets[filepath.Base(path)]; ok {
		return asset, nil
	}
	m.next++
	return fmt.Sprintf("%d", 500+m.next), nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
}

func writeLetters(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testsupport.TouchFile(t, filepath.Join(dir, name))
	}
	return dir
}

func outcomesByFile(report *letters.Report) map[string]letters.Outcome {
	out := make(map[string]letters.Outcome, len(report.Outcomes))
	for _, o := range report.Outcomes {
		out[o.File] = o
	}
	return out
}

func TestRunMixedBatch(t *testing.T) {
	dir := writeLetters(t, "78254_LetterA.pdf", ".DS_Store", "99999_Other.pdf", "1_B.pdf")
	store := newMemStore(letters.Record{Handle: "10", Identifier: "78254"}, letters.Record{Handle: "11", Identifier: "1"})
	media := &stubMedia{assets: map[string]string{"78254_LetterA.pdf": "901", "1_B.pdf": "902"}}

	imp, err := letters.NewImporter(store, media, letters.WithClock(fixedClock), letters.WithField("audit_letters"))
	if err != nil {
		t.Fatalf("NewImporter: %v", err)
	}
	report, err := imp.Run(context.Background(), letters.Request{Dir: dir})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes (.DS_Store filtered), got %d", len(report.Outcomes))
	}
	if report.Year != "2023-24" {
		t.Fatalf("expected default year label, got %q", report.Year)
	}
	byFile := outcomesByFile(report)

	first := byFile["78254_LetterA.pdf"]
	if first.Status != letters.StatusImported || first.Record != "10" || first.Asset != "901" {
		t.Fatalf("unexpected outcome for first file: %#v", first)
	}
	if first.Message() != "78254_LetterA.pdf imported to 10." {
		t.Fatalf("unexpected message: %q", first.Message())
	}

	missing := byFile["99999_Other.pdf"]
	if missing.Status != letters.StatusSkipped || !errors.Is(missing.Err, letters.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %#v", missing)
	}
	if !strings.Contains(missing.Message(), "Matching body not found") {
		t.Fatalf("unexpected message: %q", missing.Message())
	}

	last := byFile["1_B.pdf"]
	if last.Status != letters.StatusImported || last.Record != "11" {
		t.Fatalf("unexpected outcome for last file: %#v", last)
	}

	if len(media.paths) != 2 {
		t.Fatalf("expected 2 media imports, got %v", media.paths)
	}
	got := store.entries["10/audit_letters"]
	if len(got) != 1 || got[0].Asset != "901" || got[0].Title != "" || got[0].Year != "2023-24" {
		t.Fatalf("unexpected entries for record 10: %#v", got)
	}
	if report.RunID == "" {
		t.Fatal("expected generated run id")
	}
}

func TestRunContinuesAfterImportFailure(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf", "2_B.pdf", "3_C.pdf", "nounderscore.pdf")
	store := newMemStore(
		letters.Record{Handle: "21", Identifier: "1"},
		letters.Record{Handle: "22", Identifier: "2"},
		letters.Record{Handle: "23", Identifier: "3"},
	)
	media := &stubMedia{fail: map[string]error{
		"2_B.pdf": services.Wrap(services.ErrExternalTool, "wpcli", "media import", "exit status 1", nil),
	}}

	imp, err := letters.NewImporter(store, media, letters.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewImporter: %v", err)
	}
	report, err := imp.Run(context.Background(), letters.Request{Dir: dir, Year: " 2022-23 "})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	byFile := outcomesByFile(report)

	failed := byFile["2_B.pdf"]
	if failed.OK() || !errors.Is(failed.Err, letters.ErrImportFailed) || !errors.Is(failed.Err, services.ErrExternalTool) {
		t.Fatalf("expected import failure, got %#v", failed)
	}
	if !strings.Contains(failed.Message(), "Have you checked the file permissions?") {
		t.Fatalf("unexpected message: %q", failed.Message())
	}
	if _, ok := store.entries["22/audit_letters"]; ok {
		t.Fatal("record 22 must not be updated after failed import")
	}

	noID := byFile["nounderscore.pdf"]
	if !errors.Is(noID.Err, letters.ErrNoIdentifier) {
		t.Fatalf("expected no identifier, got %#v", noID)
	}
	if !strings.Contains(noID.Message(), "Failed to find Body ID in filename") {
		t.Fatalf("unexpected message: %q", noID.Message())
	}

	for _, name := range []string{"1_A.pdf", "3_C.pdf"} {
		if !byFile[name].OK() {
			t.Fatalf("expected %s to be imported, got %#v", name, byFile[name])
		}
	}
	if got := store.entries["23/audit_letters"]; len(got) != 1 || got[0].Year != "2022-23" {
		t.Fatalf("expected operator year label on record 23, got %#v", got)
	}
}

func TestRunTreatsEmptyAssetAsFailure(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf")
	store := newMemStore(letters.Record{Handle: "5", Identifier: "1"})
	media := &stubMedia{assets: map[string]string{"1_A.pdf": "  "}}

	imp, _ := letters.NewImporter(store, media)
	report, err := imp.Run(context.Background(), letters.Request{Dir: dir})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !errors.Is(report.Outcomes[0].Err, letters.ErrImportFailed) {
		t.Fatalf("expected import failure for blank asset, got %#v", report.Outcomes[0])
	}
	if store.writes != 0 {
		t.Fatalf("expected no writes, got %d", store.writes)
	}
}

func TestRunPrependsToExistingEntries(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf", "1_B.pdf")
	store := newMemStore(letters.Record{Handle: "7", Identifier: "1"})
	store.entries["7/audit_letters"] = []letters.Entry{{Asset: "100", Title: "Annual letter", Year: "2020-21"}}
	media := &stubMedia{assets: map[string]string{"1_A.pdf": "201", "1_B.pdf": "202"}}

	imp, _ := letters.NewImporter(store, media, letters.WithClock(fixedClock))
	if _, err := imp.Run(context.Background(), letters.Request{Dir: dir}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := store.entries["7/audit_letters"]
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %#v", got)
	}
	wantAssets := []string{"202", "201", "100"}
	for i, want := range wantAssets {
		if got[i].Asset != want {
			t.Fatalf("entries[%d].Asset = %q, want %q (all %#v)", i, got[i].Asset, want, got)
		}
	}
	if got[2].Title != "Annual letter" {
		t.Fatalf("existing entry was mutated: %#v", got[2])
	}
}

func TestRunReportsUpdateFailure(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf")
	store := newMemStore(letters.Record{Handle: "5", Identifier: "1"})
	store.writeErr = errors.New("disk full")

	imp, _ := letters.NewImporter(store, &stubMedia{})
	report, err := imp.Run(context.Background(), letters.Request{Dir: dir})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	outcome := report.Outcomes[0]
	if !errors.Is(outcome.Err, letters.ErrUpdateFailed) {
		t.Fatalf("expected update failure, got %#v", outcome)
	}
	if outcome.Message() != "1_A.pdf could not be imported. Failed to update record 5." {
		t.Fatalf("unexpected message: %q", outcome.Message())
	}
}

func TestRunDryRunSkipsSideEffects(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf", "2_B.pdf")
	store := newMemStore(letters.Record{Handle: "5", Identifier: "1"})
	media := &stubMedia{}

	imp, _ := letters.NewImporter(store, media)
	report, err := imp.Run(context.Background(), letters.Request{Dir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	byFile := outcomesByFile(report)
	if byFile["1_A.pdf"].Status != letters.StatusPlanned {
		t.Fatalf("expected planned outcome, got %#v", byFile["1_A.pdf"])
	}
	if byFile["1_A.pdf"].Message() != "1_A.pdf would be imported to 5." {
		t.Fatalf("unexpected message: %q", byFile["1_A.pdf"].Message())
	}
	if !errors.Is(byFile["2_B.pdf"].Err, letters.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %#v", byFile["2_B.pdf"])
	}
	if len(media.paths) != 0 || store.writes != 0 {
		t.Fatalf("dry run must not import or write (imports=%d writes=%d)", len(media.paths), store.writes)
	}
}

func TestRunFatalErrors(t *testing.T) {
	store := newMemStore()
	imp, _ := letters.NewImporter(store, &stubMedia{})
	if _, err := imp.Run(context.Background(), letters.Request{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing directory")
	}

	store.listErr = errors.New("db down")
	if _, err := imp.Run(context.Background(), letters.Request{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error when records cannot be listed")
	}

	dup := newMemStore(letters.Record{Handle: "1", Identifier: "x"}, letters.Record{Handle: "2", Identifier: "X"})
	strict, _ := letters.NewImporter(dup, &stubMedia{}, letters.WithDuplicatePolicy(letters.DuplicateError))
	if _, err := strict.Run(context.Background(), letters.Request{Dir: t.TempDir()}); !errors.Is(err, letters.ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate identifier error, got %v", err)
	}
}

func TestRunPassesQueryAndRunID(t *testing.T) {
	store := newMemStore()
	query := letters.RecordQuery{Category: "auditedbody", Status: "publish", IdentifierKey: "new_body_id"}
	imp, _ := letters.NewImporter(store, &stubMedia{}, letters.WithQuery(query))

	ctx := services.WithRunID(context.Background(), "fixed-run")
	report, err := imp.Run(ctx, letters.Request{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if store.query != query {
		t.Fatalf("unexpected query: %#v", store.query)
	}
	if report.RunID != "fixed-run" {
		t.Fatalf("expected run id from context, got %q", report.RunID)
	}
}

func TestConcurrentRunsDoNotLoseEntries(t *testing.T) {
	store := newMemStore(letters.Record{Handle: "9", Identifier: "1"})
	imp, _ := letters.NewImporter(store, &stubMedia{})

	const runs = 8
	var wg sync.WaitGroup
	for n := 0; n < runs; n++ {
		dir := writeLetters(t, fmt.Sprintf("1_run%d.pdf", n))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := imp.Run(context.Background(), letters.Request{Dir: dir}); err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(store.entries["9/audit_letters"]); got != runs {
		t.Fatalf("expected %d entries after concurrent runs, got %d", runs, got)
	}
}

func TestNewImporterRequiresCollaborators(t *testing.T) {
	if _, err := letters.NewImporter(nil, &stubMedia{}); err == nil {
		t.Fatal("expected error without record store")
	}
	if _, err := letters.NewImporter(newMemStore(), nil); err == nil {
		t.Fatal("expected error without media importer")
	}
}

func TestRunRestrictedToNamedFiles(t *testing.T) {
	dir := writeLetters(t, "1_A.pdf", "1_B.pdf", ".hidden.pdf")
	store := newMemStore(letters.Record{Handle: "3", Identifier: "1"})
	media := &stubMedia{}

	imp, _ := letters.NewImporter(store, media)
	report, err := imp.Run(context.Background(), letters.Request{
		Dir:   dir,
		Files: []string{filepath.Join(dir, "1_B.pdf"), ".hidden.pdf", "missing.pdf"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].File != "1_B.pdf" {
		t.Fatalf("expected only 1_B.pdf, got %#v", report.Outcomes)
	}
	if len(media.paths) != 1 {
		t.Fatalf("expected a single import, got %v", media.paths)
	}
}
