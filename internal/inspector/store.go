// Package inspector implements the snapshot store: SQLite is the query
// engine and JSONL files in DataDir are the source of truth. The database is
// rebuilt from the JSONL files on every Attach, and every mutation rewrites
// the JSONL files atomically before it returns.
package inspector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

const (
	dbFile = "snapshots.db"

	// timeFormat sorts lexicographically in time order.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store implements snapshot.Store.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   snapshot.Config
	dataDir  string
	db       *sql.DB
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a detached store. Call Attach before use.
func NewStore(opts ...Option) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach validates config, creates DataDir and the JSONL files when missing,
// and loads the JSONL contents into a fresh SQLite database.
func (s *Store) Attach(config snapshot.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return snapshot.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	for _, m := range jsonlTables {
		if err := ensureJSONL(filepath.Join(dataDir, m.file)); err != nil {
			return err
		}
	}

	dbPath := filepath.Join(dataDir, dbFile)
	// The database is a cache of the JSONL files.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// A single connection keeps PRAGMA foreign_keys in effect for every statement.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	s.db = db
	s.config = config
	s.dataDir = dataDir
	s.attached = true
	s.logger.Debug("snapshot store attached", zap.String("data_dir", dataDir))
	return nil
}

// Detach closes the database. It is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	s.attached = false
	db := s.db
	s.db = nil
	s.logger.Debug("snapshot store detached", zap.String("data_dir", s.dataDir))
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// SaveSnapshot validates snap, fills in a missing id and timestamp, replaces
// any snapshot stored under the same id, and persists the JSONL files.
func (s *Store) SaveSnapshot(snap *snapshot.Snapshot) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return "", snapshot.ErrStoreDetached
	}

	if snap.SnapshotID == "" {
		snap.SnapshotID = generateUUID()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	snap.TakenAt = snap.TakenAt.UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSnapshotRows(tx, snap.SnapshotID); err != nil {
		return "", err
	}
	if _, err := tx.Exec(
		"INSERT INTO snapshots (snapshot_id, label, taken_at) VALUES (?, ?, ?)",
		snap.SnapshotID, snap.Label, snap.TakenAt.Format(timeFormat),
	); err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}

	objStmt, err := tx.Prepare(
		"INSERT INTO snapshot_objects (snapshot_id, object_id, ordinal, type_name, parent_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("preparing object insert: %w", err)
	}
	defer objStmt.Close()
	valStmt, err := tx.Prepare(
		"INSERT INTO snapshot_values (snapshot_id, object_id, ordinal, property, owner, value_json, priority, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("preparing value insert: %w", err)
	}
	defer valStmt.Close()

	for i, o := range snap.Objects {
		if _, err := objStmt.Exec(snap.SnapshotID, o.ObjectID, i, o.TypeName, o.ParentID); err != nil {
			return "", fmt.Errorf("inserting object %s: %w", o.ObjectID, err)
		}
		for j, v := range o.Values {
			value := string(v.Value)
			if value == "" {
				value = "null"
			}
			if _, err := valStmt.Exec(snap.SnapshotID, o.ObjectID, j, v.Property, v.Owner, value, v.Priority, v.Description); err != nil {
				return "", fmt.Errorf("inserting value %s.%s on %s: %w", v.Owner, v.Property, o.ObjectID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing save: %w", err)
	}
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	s.logger.Debug("snapshot saved",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("objects", len(snap.Objects)))
	return snap.SnapshotID, nil
}

// GetSnapshot loads the snapshot with the given id.
func (s *Store) GetSnapshot(id string) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, snapshot.ErrStoreDetached
	}

	snap := &snapshot.Snapshot{SnapshotID: id}
	var takenAt string
	err := s.db.QueryRow("SELECT label, taken_at FROM snapshots WHERE snapshot_id = ?", id).
		Scan(&snap.Label, &takenAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	snap.TakenAt, _ = time.Parse(timeFormat, takenAt)

	rows, err := s.db.Query(
		"SELECT object_id, type_name, parent_id FROM snapshot_objects WHERE snapshot_id = ? ORDER BY ordinal", id)
	if err != nil {
		return nil, fmt.Errorf("reading objects of %s: %w", id, err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var o snapshot.ObjectRecord
		if err := rows.Scan(&o.ObjectID, &o.TypeName, &o.ParentID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		index[o.ObjectID] = len(snap.Objects)
		snap.Objects = append(snap.Objects, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(
		"SELECT object_id, property, owner, value_json, priority, description FROM snapshot_values WHERE snapshot_id = ? ORDER BY object_id, ordinal", id)
	if err != nil {
		return nil, fmt.Errorf("reading values of %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectID, value string
		var v snapshot.ValueRecord
		if err := rows.Scan(&objectID, &v.Property, &v.Owner, &value, &v.Priority, &v.Description); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		i, ok := index[objectID]
		if !ok {
			continue
		}
		v.Value = json.RawMessage(value)
		snap.Objects[i].Values = append(snap.Objects[i].Values, v)
	}
	return snap, rows.Err()
}

// ListSnapshots returns summaries of every stored snapshot, oldest first.
func (s *Store) ListSnapshots() ([]snapshot.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, snapshot.ErrStoreDetached
	}

	rows, err := s.db.Query(`
SELECT s.snapshot_id, s.label, s.taken_at,
       (SELECT COUNT(*) FROM snapshot_objects o WHERE o.snapshot_id = s.snapshot_id),
       (SELECT COUNT(*) FROM snapshot_values v WHERE v.snapshot_id = s.snapshot_id)
FROM snapshots s
ORDER BY s.taken_at, s.snapshot_id`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Summary
	for rows.Next() {
		var sum snapshot.Summary
		var takenAt string
		if err := rows.Scan(&sum.SnapshotID, &sum.Label, &takenAt, &sum.ObjectCount, &sum.ValueCount); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		sum.TakenAt, _ = time.Parse(timeFormat, takenAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot and its records.
func (s *Store) DeleteSnapshot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return snapshot.ErrStoreDetached
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM snapshots WHERE snapshot_id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("checking snapshot %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
	}
	if err := deleteSnapshotRows(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return s.persistLocked()
}

func deleteSnapshotRows(tx *sql.Tx, id string) error {
	for _, table := range []string{"snapshot_values", "snapshot_objects", "snapshots"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE snapshot_id = ?", id); err != nil {
			return fmt.Errorf("deleting %s of %s: %w", table, id, err)
		}
	}
	return nil
}

// persistLocked rewrites every JSONL file from the database. The caller must
// hold s.mu for writing.
func (s *Store) persistLocked() error {
	for _, m := range jsonlTables {
		records, err := dumpTable(s.db, m)
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(s.dataDir, m.file), records); err != nil {
			return fmt.Errorf("persisting %s: %w", m.file, err)
		}
	}
	return nil
}

// generateUUID generates a new UUID v7 for snapshot ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

var _ snapshot.Store = (*Store)(nil)
