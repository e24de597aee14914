package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"auditimport/internal/letters"
	"auditimport/internal/services"
)

// NewRecord describes a record to insert.
type NewRecord struct {
	Category      string
	Status        string
	IdentifierKey string
	Identifier    string
}

// RecordSummary is a listing row used by operator commands.
type RecordSummary struct {
	Handle     string
	Category   string
	Status     string
	Identifier string
	Letters    int
}

// AddRecord inserts a record and its identifier metadata, returning the new handle.
func (s *Store) AddRecord(ctx context.Context, rec NewRecord) (string, error) {
	category := strings.TrimSpace(rec.Category)
	status := strings.TrimSpace(rec.Status)
	key := strings.ToLower(strings.TrimSpace(rec.IdentifierKey))
	if category == "" || status == "" || key == "" {
		return "", services.Wrap(services.ErrValidation, "catalog", "add record", "category, status and identifier key are required", nil)
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			"INSERT INTO records (category, status, created_at) VALUES (?, ?, ?)",
			category, status, s.timestamp())
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO record_meta (record_id, meta_key, meta_value) VALUES (?, ?, ?)",
			id, key, strings.TrimSpace(rec.Identifier)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return formatHandle(id), nil
}

// ListRecords returns every record matching query that carries the
// identifier key, ordered by handle. Empty category or status match any value.
func (s *Store) ListRecords(ctx context.Context, query letters.RecordQuery) ([]letters.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, m.meta_value
        FROM records r
        JOIN record_meta m ON m.record_id = r.id AND m.meta_key = ?
        WHERE (? = '' OR r.category = ?)
          AND (? = '' OR r.status = ?)
        ORDER BY r.id`,
		strings.ToLower(strings.TrimSpace(query.IdentifierKey)),
		query.Category, query.Category,
		query.Status, query.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []letters.Record
	for rows.Next() {
		var (
			id         int64
			identifier string
		)
		if err := rows.Scan(&id, &identifier); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, letters.Record{Handle: formatHandle(id), Identifier: identifier})
	}
	return out, rows.Err()
}

// Summaries lists records matching query with the number of entries held
// in field. Records lacking the identifier key are included with an empty
// identifier.
func (s *Store) Summaries(ctx context.Context, query letters.RecordQuery, field string) ([]RecordSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.category, r.status, COALESCE(m.meta_value, ''),
               COALESCE(json_array_length(f.value_json), 0)
        FROM records r
        LEFT JOIN record_meta m ON m.record_id = r.id AND m.meta_key = ?
        LEFT JOIN record_fields f ON f.record_id = r.id AND f.field = ?
        WHERE (? = '' OR r.category = ?)
          AND (? = '' OR r.status = ?)
        ORDER BY r.id`,
		strings.ToLower(strings.TrimSpace(query.IdentifierKey)),
		field,
		query.Category, query.Category,
		query.Status, query.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("query record summaries: %w", err)
	}
	defer rows.Close()

	var out []RecordSummary
	for rows.Next() {
		var (
			id      int64
			summary RecordSummary
		)
		if err := rows.Scan(&id, &summary.Category, &summary.Status, &summary.Identifier, &summary.Letters); err != nil {
			return nil, fmt.Errorf("scan record summary: %w", err)
		}
		summary.Handle = formatHandle(id)
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) recordExists(ctx context.Context, id int64) error {
	var found int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM records WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, "catalog", "lookup record", fmt.Sprintf("record %d does not exist", id), nil)
	}
	if err != nil {
		return fmt.Errorf("lookup record: %w", err)
	}
	return nil
}
