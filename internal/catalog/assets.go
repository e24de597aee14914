package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"auditimport/internal/services"
)

// Asset is a registered media file.
type Asset struct {
	Handle    string
	Path      string
	CreatedAt string
}

// Import registers the file at path in place and returns the new asset
// handle. The file must exist and be readable; it is never copied.
func (s *Store) Import(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "catalog", "import asset", abs, err)
		}
		return "", services.Wrap(services.ErrValidation, "catalog", "import asset", abs, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "catalog", "import asset", abs+" is a directory", nil)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "catalog", "import asset", "file is not readable", err)
	}
	_ = f.Close()

	res, err := s.execWithRetry(ctx,
		"INSERT INTO assets (path, created_at) VALUES (?, ?)", abs, s.timestamp())
	if err != nil {
		return "", fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return formatHandle(id), nil
}

// Asset fetches a registered asset by handle.
func (s *Store) Asset(ctx context.Context, handle string) (*Asset, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}
	asset := &Asset{Handle: formatHandle(id)}
	err = s.db.QueryRowContext(ctx, "SELECT path, created_at FROM assets WHERE id = ?", id).
		Scan(&asset.Path, &asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "lookup asset", fmt.Sprintf("asset %d does not exist", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}
	return asset, nil
}
