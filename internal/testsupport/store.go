package testsupport

import (
	"context"
	"testing"

	"auditimport/internal/catalog"
	"auditimport/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord adds a published record carrying identifier under the
// configured identifier key and returns its handle.
func SeedRecord(t testing.TB, store *catalog.Store, cfg *config.Config, identifier string) string {
	t.Helper()

	handle, err := store.AddRecord(context.Background(), catalog.NewRecord{
		Category:      cfg.Import.PostType,
		Status:        cfg.Import.PostStatus,
		IdentifierKey: cfg.Import.IdentifierMetaKey,
		Identifier:    identifier,
	})
	if err != nil {
		t.Fatalf("store.AddRecord: %v", err)
	}
	return handle
}
