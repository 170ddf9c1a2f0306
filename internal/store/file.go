// File: internal/store/file.go
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// FileStore persists the snapshot as one JSON file. Writes go through a
// temp-file rename so a crash mid-write never truncates the previous
// snapshot.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger.Named("store")}
}

// Load reads and decodes the snapshot file.
func (s *FileStore) Load(_ context.Context) (*schemas.EngineSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, schemas.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return decode(data)
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(_ context.Context, snap *schemas.EngineSnapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Clear removes the snapshot file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	return nil
}

// Close implements SnapshotStore; nothing is held open.
func (s *FileStore) Close() error { return nil }
