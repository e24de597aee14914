package wpcli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"auditimport/internal/letters"
	"auditimport/internal/services"
)

// Parameters reach PHP as base64 JSON so no value is ever interpolated into code.
const paramsPrelude = `$p = json_decode(base64_decode('%s'), true);`

const listRecordsPHP = `
$args = array('post_type' => $p['category'] !== '' ? $p['category'] : 'any', 'numberposts' => -1, 'orderby' => 'ID', 'order' => 'ASC', 'fields' => 'ids');
if ($p['status'] !== '') { $args['post_status'] = $p['status']; }
$out = array();
foreach (get_posts($args) as $id) {
    $meta = array_change_key_case(get_post_meta($id), CASE_LOWER);
    if (!isset($meta[$p['key']])) { continue; }
    $out[] = array('handle' => (string) $id, 'identifier' => (string) $meta[$p['key']][0]);
}
echo wp_json_encode($out), "\n";`

const readEntriesPHP = `
$rows = get_field($p['field'], (int) $p['id'], false);
echo wp_json_encode(is_array($rows) ? array_values($rows) : array()), "\n";`

const writeEntriesPHP = `
if (!get_post((int) $p['id'])) { echo "missing\n"; return; }
$ok = update_field($p['field'], $p['rows'], (int) $p['id']);
echo $ok ? "ok\n" : "failed\n";`

// ListRecords returns every record of query.Category in query.Status that
// carries query.IdentifierKey, matched case-insensitively, ordered by id.
func (c *Client) ListRecords(ctx context.Context, query letters.RecordQuery) ([]letters.Record, error) {
	params := map[string]string{
		"category": query.Category,
		"status":   query.Status,
		"key":      strings.ToLower(strings.TrimSpace(query.IdentifierKey)),
	}
	var rows []struct {
		Handle     string `json:"handle"`
		Identifier string `json:"identifier"`
	}
	if err := c.evalJSON(ctx, "list records", listRecordsPHP, params, &rows); err != nil {
		return nil, err
	}
	out := make([]letters.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, letters.Record{Handle: row.Handle, Identifier: row.Identifier})
	}
	return out, nil
}

// AuditEntries reads the raw repeater rows of field for the record.
func (c *Client) AuditEntries(ctx context.Context, handle, field string) ([]letters.Entry, error) {
	params := map[string]string{"id": handle, "field": field}
	var rows []map[string]any
	if err := c.evalJSON(ctx, "read entries", readEntriesPHP, params, &rows); err != nil {
		return nil, err
	}
	out := make([]letters.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.entryFromRow(row))
	}
	return out, nil
}

// SetAuditEntries replaces the repeater value. The configured field key is
// used when set so the write succeeds on records that never had the field.
func (c *Client) SetAuditEntries(ctx context.Context, handle, field string, entries []letters.Entry) error {
	key := field
	if c.field.Key != "" {
		key = c.field.Key
	}
	rows := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, c.rowFromEntry(entry))
	}
	params := map[string]any{"id": handle, "field": key, "rows": rows}
	lines, err := c.eval(ctx, "write entries", writeEntriesPHP, params)
	if err != nil {
		return err
	}
	switch lastLine(lines) {
	case "ok":
		return nil
	case "missing":
		return services.Wrap(services.ErrNotFound, "wpcli", "write entries", fmt.Sprintf("record %s does not exist", handle), nil)
	default:
		return services.Wrap(services.ErrExternalTool, "wpcli", "write entries", "update_field reported failure", nil)
	}
}

func (c *Client) entryFromRow(row map[string]any) letters.Entry {
	keys := c.subfieldKeys()
	entry := letters.Entry{
		Asset: scalarString(row[keys[0]]),
		Title: scalarString(row[keys[1]]),
		Year:  scalarString(row[keys[2]]),
	}
	for _, key := range keys {
		delete(row, key)
	}
	if len(row) > 0 {
		entry.Extra = row
	}
	return entry
}

func (c *Client) rowFromEntry(entry letters.Entry) map[string]any {
	keys := c.subfieldKeys()
	row := make(map[string]any, len(entry.Extra)+3)
	for k, v := range entry.Extra {
		row[k] = v
	}
	if id, err := strconv.ParseInt(entry.Asset, 10, 64); err == nil {
		row[keys[0]] = id
	} else {
		row[keys[0]] = entry.Asset
	}
	row[keys[1]] = entry.Title
	row[keys[2]] = entry.Year
	return row
}

func (c *Client) subfieldKeys() [3]string {
	keys := [3]string{"file", "title", "year"}
	if c.field.Asset != "" {
		keys[0] = c.field.Asset
	}
	if c.field.Title != "" {
		keys[1] = c.field.Title
	}
	if c.field.Year != "" {
		keys[2] = c.field.Year
	}
	return keys
}

func (c *Client) eval(ctx context.Context, operation, body string, params any) ([]string, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s parameters: %w", operation, err)
	}
	code := fmt.Sprintf(paramsPrelude, base64.StdEncoding.EncodeToString(payload)) + body
	return c.run(ctx, operation, "eval", code)
}

func (c *Client) evalJSON(ctx context.Context, operation, body string, params any, dest any) error {
	lines, err := c.eval(ctx, operation, body, params)
	if err != nil {
		return err
	}
	payload := lastLine(lines)
	if payload == "" {
		return services.Wrap(services.ErrExternalTool, "wpcli", operation, "empty output", nil)
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return services.Wrap(services.ErrExternalTool, "wpcli", operation, "unexpected output", err)
	}
	return nil
}

// lastLine returns the last non-blank output line; PHP notices precede it.
func lastLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(value)
	}
}
