// File: internal/store/store.go
// Description: SnapshotStore implementations. The snapshot is one JSON
// document under a single per-origin key; backends differ only in where that
// document durably lives (SQLite row, flat file, or process memory).
package store

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Open builds the configured snapshot store backend.
func Open(cfg config.StoreConfig, logger *zap.Logger) (schemas.SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "sqlite":
		return OpenSQLite(cfg.Path, cfg.Origin, logger)
	case "file":
		return NewFileStore(cfg.Path, logger), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// encode serializes a snapshot for durable storage.
func encode(snap *schemas.EngineSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// decode is tolerant of a missing or partial shape: the payload is unmarshal
// led over a default snapshot so absent sections keep their defaults.
func decode(data []byte) (*schemas.EngineSnapshot, error) {
	snap := schemas.NewDefaultSnapshot(time.Time{})
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Analytics.Files == nil {
		snap.Analytics.Files = schemas.FileMap{}
	}
	if snap.Analytics.Sessions == nil {
		snap.Analytics.Sessions = []schemas.SessionEvent{}
	}
	if snap.ROITracking.WorkflowSessions == nil {
		snap.ROITracking.WorkflowSessions = []schemas.WorkflowSession{}
	}
	if snap.Config == nil {
		snap.Config = schemas.DefaultActionConfig()
	}
	return snap, nil
}
