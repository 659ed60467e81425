package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/normgraph/internal/payload"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

const metaNextClientID = "next_client_id"

// SnapshotDB persists snapshots to SQLite. This is the serialization
// collaborator the in-memory core hands its state to between sessions:
// a loaded snapshot typically becomes the overlay of a fresh Store.
//
// Uses SQLite with WAL mode for concurrent read access.
type SnapshotDB struct {
	db *sql.DB
}

// OpenSnapshotDB creates or opens a snapshot database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func OpenSnapshotDB(path string) (*SnapshotDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to snapshot database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SnapshotDB{db: db}, nil
}

// Close closes the database connection.
func (s *SnapshotDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// Save replaces the persisted snapshot with sn, atomically.
func (s *SnapshotDB) Save(ctx context.Context, sn *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Full replacement: the snapshot is the source of truth.
	for _, stmt := range []string{
		"DELETE FROM record_fields",
		"DELETE FROM root_calls",
		"DELETE FROM records",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("save snapshot: clear: %w", err)
		}
	}

	for _, id := range sn.RecordIDs() {
		typeName, _ := sn.Type(id)
		nonexistent := 0
		if sn.State(id) == StateNonexistent {
			nonexistent = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, type_name, nonexistent)
			VALUES (?, ?, ?)
		`, id, typeName, nonexistent)
		if err != nil {
			return fmt.Errorf("save snapshot: record %q: %w", id, err)
		}

		for _, name := range sn.FieldNames(id) {
			kind, value, err := encodeCell(sn.records[id].fields[name])
			if err != nil {
				return fmt.Errorf("save snapshot: field %q.%q: %w", id, name, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO record_fields (record_id, name, kind, value)
				VALUES (?, ?, ?, ?)
			`, id, name, kind, value)
			if err != nil {
				return fmt.Errorf("save snapshot: field %q.%q: %w", id, name, err)
			}
		}
	}

	for _, entry := range sn.RootCalls() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO root_calls (call, arg, record_id)
			VALUES (?, ?, ?)
		`, entry.Call, entry.Arg, entry.ID)
		if err != nil {
			return fmt.Errorf("save snapshot: root call %q: %w", entry.Call, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaNextClientID, strconv.FormatInt(sn.nextClientID, 10))
	if err != nil {
		return fmt.Errorf("save snapshot: meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. An empty database loads as an empty
// snapshot, not an error.
func (s *SnapshotDB) Load(ctx context.Context) (*Snapshot, error) {
	sn := &Snapshot{
		records:   make(map[string]*record),
		rootCalls: make(map[rootCallKey]string),
		types:     make(map[string]string),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type_name, nonexistent FROM records ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, typeName string
		var nonexistent int
		if err := rows.Scan(&id, &typeName, &nonexistent); err != nil {
			return nil, fmt.Errorf("load snapshot: scan record: %w", err)
		}
		rec := newRecord()
		rec.deleted = nonexistent != 0
		sn.records[id] = rec
		if typeName != "" {
			sn.types[id] = typeName
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: records: %w", err)
	}

	fieldRows, err := s.db.QueryContext(ctx, `
		SELECT record_id, name, kind, value FROM record_fields
	`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: fields: %w", err)
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var recordID, name, kind, value string
		if err := fieldRows.Scan(&recordID, &name, &kind, &value); err != nil {
			return nil, fmt.Errorf("load snapshot: scan field: %w", err)
		}
		rec, ok := sn.records[recordID]
		if !ok {
			return nil, fmt.Errorf("load snapshot: field for unknown record %q", recordID)
		}
		c, err := decodeCell(kind, value)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: field %q.%q: %w", recordID, name, err)
		}
		rec.fields[name] = c
	}
	if err := fieldRows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: fields: %w", err)
	}

	callRows, err := s.db.QueryContext(ctx, `
		SELECT call, arg, record_id FROM root_calls
	`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: root calls: %w", err)
	}
	defer callRows.Close()
	for callRows.Next() {
		var call, arg, recordID string
		if err := callRows.Scan(&call, &arg, &recordID); err != nil {
			return nil, fmt.Errorf("load snapshot: scan root call: %w", err)
		}
		sn.rootCalls[rootCallKey{call: call, arg: arg}] = recordID
	}
	if err := callRows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: root calls: %w", err)
	}

	var counter string
	err = s.db.QueryRowContext(ctx, `
		SELECT value FROM snapshot_meta WHERE key = ?
	`, metaNextClientID).Scan(&counter)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database.
	case err != nil:
		return nil, fmt.Errorf("load snapshot: meta: %w", err)
	default:
		n, err := strconv.ParseInt(counter, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: invalid client-id counter %q: %w", counter, err)
		}
		sn.nextClientID = n
	}

	return sn, nil
}

func encodeCell(c cell) (kind, value string, err error) {
	switch cc := c.(type) {
	case scalarCell:
		data, err := payload.MarshalCanonical(cc.value)
		if err != nil {
			return "", "", err
		}
		return "scalar", string(data), nil
	case linkCell:
		return "link", cc.id, nil
	case linkListCell:
		data, err := json.Marshal(cc.ids)
		if err != nil {
			return "", "", err
		}
		return "links", string(data), nil
	default:
		return "", "", fmt.Errorf("unknown cell type %T", c)
	}
}

func decodeCell(kind, value string) (cell, error) {
	switch kind {
	case "scalar":
		v, err := payload.Decode([]byte(value))
		if err != nil {
			return nil, err
		}
		return scalarCell{value: v}, nil
	case "link":
		return linkCell{id: value}, nil
	case "links":
		var ids []string
		if err := json.Unmarshal([]byte(value), &ids); err != nil {
			return nil, err
		}
		return linkListCell{ids: ids}, nil
	default:
		return nil, fmt.Errorf("unknown cell kind %q", kind)
	}
}
