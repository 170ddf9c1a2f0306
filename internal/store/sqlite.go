// File: internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/voxforge9/clickpilot/api/schemas"
)

// SQLiteStore keeps the snapshot in a single-row-per-origin table. The
// pure-Go driver needs no cgo, matching the agent's local-first deployment.
type SQLiteStore struct {
	db     *sql.DB
	origin string
	logger *zap.Logger
}

// OpenSQLite opens or creates the database and applies the schema.
func OpenSQLite(path, origin string, logger *zap.Logger) (*SQLiteStore, error) {
	if origin == "" {
		origin = "default"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	s := &SQLiteStore{db: db, origin: origin, logger: logger.Named("store")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `CREATE TABLE IF NOT EXISTS snapshots (
		origin   TEXT PRIMARY KEY,
		payload  BLOB NOT NULL,
		saved_at TEXT NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}
	return nil
}

// Load reads the origin's snapshot row. ErrSnapshotNotFound when absent.
func (s *SQLiteStore) Load(ctx context.Context) (*schemas.EngineSnapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE origin = ?`, s.origin).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, schemas.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decode(payload)
}

// Save upserts the origin's snapshot row.
func (s *SQLiteStore) Save(ctx context.Context, snap *schemas.EngineSnapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (origin, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT (origin) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		s.origin, payload, snap.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Clear removes the origin's snapshot row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE origin = ?`, s.origin); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
