package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"auditimport/internal/letters"
)

const (
	entryAssetKey = "asset"
	entryTitleKey = "title"
	entryYearKey  = "year"
)

// AuditEntries returns the entries stored in field for the record, or nil
// when the field has never been written.
func (s *Store) AuditEntries(ctx context.Context, handle, field string) ([]letters.Entry, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}
	if err := s.recordExists(ctx, id); err != nil {
		return nil, err
	}

	var payload string
	err = s.db.QueryRowContext(ctx,
		"SELECT value_json FROM record_fields WHERE record_id = ? AND field = ?", id, field,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read field %s: %w", field, err)
	}
	return decodeEntries(payload)
}

// SetAuditEntries replaces the whole field value for the record.
func (s *Store) SetAuditEntries(ctx context.Context, handle, field string, entries []letters.Entry) error {
	id, err := parseHandle(handle)
	if err != nil {
		return err
	}
	if err := s.recordExists(ctx, id); err != nil {
		return err
	}
	payload, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	_, err = s.execWithRetry(ctx, `
        INSERT INTO record_fields (record_id, field, value_json, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(record_id, field) DO UPDATE SET
            value_json = excluded.value_json,
            updated_at = excluded.updated_at`,
		id, field, payload, s.timestamp())
	if err != nil {
		return fmt.Errorf("write field %s: %w", field, err)
	}
	return nil
}

func encodeEntries(entries []letters.Entry) (string, error) {
	rows := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		row := make(map[string]any, len(entry.Extra)+3)
		for k, v := range entry.Extra {
			row[k] = v
		}
		row[entryAssetKey] = entry.Asset
		row[entryTitleKey] = entry.Title
		row[entryYearKey] = entry.Year
		rows = append(rows, row)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode entries: %w", err)
	}
	return string(data), nil
}

func decodeEntries(payload string) ([]letters.Entry, error) {
	var rows []map[string]any
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	out := make([]letters.Entry, 0, len(rows))
	for _, row := range rows {
		entry := letters.Entry{
			Asset: stringValue(row[entryAssetKey]),
			Title: stringValue(row[entryTitleKey]),
			Year:  stringValue(row[entryYearKey]),
		}
		delete(row, entryAssetKey)
		delete(row, entryTitleKey)
		delete(row, entryYearKey)
		if len(row) > 0 {
			entry.Extra = row
		}
		out = append(out, entry)
	}
	return out, nil
}

func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
