package inspector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTable maps a JSONL file to its SQLite table. Tables with foreign keys
// must come after the tables they reference.
type jsonlTable struct {
	file    string
	table   string
	columns []string
	orderBy string
}

var jsonlTables = []jsonlTable{
	{snapshotsJSONL, "snapshots", []string{"snapshot_id", "label", "taken_at"}, "taken_at, snapshot_id"},
	{objectsJSONL, "snapshot_objects", []string{"snapshot_id", "object_id", "ordinal", "type_name", "parent_id"}, "snapshot_id, ordinal"},
	{valuesJSONL, "snapshot_values", []string{"snapshot_id", "object_id", "ordinal", "property", "owner", "value_json", "priority", "description"}, "snapshot_id, object_id, ordinal"},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts its records into
// the matching table. Loading is transactional: either every file loads or
// the database stays empty. Malformed lines, malformed records and records
// that violate a constraint are skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys for load: %w", err)
	}

	for _, m := range jsonlTables {
		records, err := readJSONL(filepath.Join(dataDir, m.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", m.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, m.table, m.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
	}

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("re-enabling foreign keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			switch v := obj[col].(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				args[i] = string(b)
			default:
				args[i] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// dumpTable reads every row of a mapped table in its canonical order and
// returns one JSON object per row, keyed by column name.
func dumpTable(q querier, m jsonlTable) ([]json.RawMessage, error) {
	rows, err := q.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(m.columns, ", "), m.table, m.orderBy))
	if err != nil {
		return nil, fmt.Errorf("reading %s for JSONL: %w", m.table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(m.columns))
		ptrs := make([]any, len(m.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s for JSONL: %w", m.table, err)
		}
		obj := make(map[string]any, len(m.columns))
		for i, col := range m.columns {
			if b, ok := vals[i].([]byte); ok {
				obj[col] = string(b)
			} else {
				obj[col] = vals[i]
			}
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", m.table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}
