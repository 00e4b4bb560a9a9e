package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current snapshot schema version. Bump this when the
// schema changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the snapshot database was written by a
// different schema version.
var ErrSchemaMismatch = errors.New("snapshot schema version mismatch")

// Snapshot is the persisted form of one job: the full row written through
// on every event append. Events travel as a JSON array so a restore can
// rebuild the event log exactly, replay cursors included.
type Snapshot struct {
	ID         string
	Status     Status
	SourcePath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResultJSON string
	EventsJSON string
}

// StoreHealth captures diagnostic information about the snapshot database.
type StoreHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TotalJobs        int
	Error            string
}

// SnapshotStore persists job snapshots in an embedded SQLite file. The
// registry remains the in-memory owner of job state; the store is purely
// the crash-recovery medium.
type SnapshotStore struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the snapshot database.
func OpenStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure snapshot directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SnapshotStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *SnapshotStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Save upserts the full snapshot row for one job.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_snapshots (id, status, source_path, created_at, updated_at, result_json, events_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            updated_at = excluded.updated_at,
            result_json = excluded.result_json,
            events_json = excluded.events_json`,
		snap.ID,
		string(snap.Status),
		snap.SourcePath,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
		nullableString(snap.ResultJSON),
		snap.EventsJSON,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// LoadAll reads every persisted snapshot, oldest first.
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, source_path, created_at, updated_at, result_json, events_json
         FROM job_snapshots ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var status, createdAt, updatedAt string
		var resultJSON sql.NullString
		if err := rows.Scan(&snap.ID, &status, &snap.SourcePath, &createdAt, &updatedAt, &resultJSON, &snap.EventsJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		parsed, ok := ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("snapshot %s: unknown status %q", snap.ID, status)
		}
		snap.Status = parsed
		if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("snapshot %s: parse created_at: %w", snap.ID, err)
		}
		if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("snapshot %s: parse updated_at: %w", snap.ID, err)
		}
		if resultJSON.Valid {
			snap.ResultJSON = resultJSON.String
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Health reports snapshot database diagnostics for the status surface.
func (s *SnapshotStore) Health(ctx context.Context) StoreHealth {
	health := StoreHealth{DBPath: s.path}
	if _, err := os.Stat(s.path); err == nil {
		health.DatabaseExists = true
	} else if !os.IsNotExist(err) {
		health.Error = err.Error()
		return health
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		health.Error = err.Error()
		return health
	}
	health.DatabaseReadable = true
	health.SchemaVersion = fmt.Sprintf("%d", version)

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM job_snapshots").Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
	}
	return health
}

func (s *SnapshotStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
