package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/config"
)

func sampleSnapshot(t *testing.T) *schemas.EngineSnapshot {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	snap := schemas.NewDefaultSnapshot(now)
	snap.TotalClicks = 3
	snap.Analytics.TotalAccepts = 1
	snap.Analytics.Sessions = []schemas.SessionEvent{{
		ID:          "ev-1",
		Filename:    "server.go",
		AddedLines:  12,
		ActionType:  schemas.ActionAccept,
		Timestamp:   now,
		TimeSavedMs: 29900,
	}}
	snap.Analytics.Files["server.go"] = &schemas.FileRecord{
		AcceptCount:  1,
		FirstSeen:    now,
		LastSeen:     now,
		TotalAdded:   12,
		ActionCounts: map[schemas.ActionType]int{schemas.ActionAccept: 1},
	}
	snap.ROITracking.TotalTimeSavedMs = 29900
	snap.ROITracking.WorkflowSessions = []schemas.WorkflowSession{{
		ActionType: schemas.ActionAccept, TimeSavedMs: 29900, Timestamp: now,
	}}
	snap.Config[schemas.ActionRun] = false
	return snap
}

func assertRoundTrip(t *testing.T, s schemas.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, schemas.ErrSnapshotNotFound)

	want := sampleSnapshot(t)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got), "snapshot must survive the round trip unchanged")
	assert.False(t, got.Config[schemas.ActionRun], "disabled flag survives persistence")

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, schemas.ErrSnapshotNotFound)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	assertRoundTrip(t, s)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	s := NewFileStore(path, zap.NewNop())
	defer s.Close()
	assertRoundTrip(t, s)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	s, err := OpenSQLite(path, "test-origin", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assertRoundTrip(t, s)
}

func TestSQLiteStoreIsolatesOrigins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	ctx := context.Background()

	a, err := OpenSQLite(path, "origin-a", zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSQLite(path, "origin-b", zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, sampleSnapshot(t)))

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, schemas.ErrSnapshotNotFound, "origins must not share snapshots")

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalClicks)
}

func TestFileStoreSaveIsReplacing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	first := sampleSnapshot(t)
	require.NoError(t, s.Save(ctx, first))

	second := sampleSnapshot(t)
	second.TotalClicks = 99
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 99, got.TotalClicks)
}

func TestDecodeMergesPartialPayloadOverDefaults(t *testing.T) {
	got, err := decode([]byte(`{"totalClicks": 5}`))
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalClicks)
	assert.NotNil(t, got.Analytics.Files)
	assert.NotNil(t, got.Analytics.Sessions)
	assert.NotNil(t, got.ROITracking.WorkflowSessions)
	assert.Equal(t, schemas.DefaultManualWorkflowMs, got.ROITracking.AverageManualWorkflowMs)
	assert.True(t, got.Config[schemas.ActionAccept], "absent config falls back to all-enabled")
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"file", false},
		{"sqlite", false},
		{"redis", true},
	}
	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			s, err := Open(config.StoreConfig{
				Backend: tc.backend,
				Path:    filepath.Join(dir, "snap-"+tc.backend),
				Origin:  "default",
			}, zap.NewNop())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
