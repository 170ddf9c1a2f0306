package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/config"
	"github.com/voxforge9/clickpilot/internal/store"
	"github.com/voxforge9/clickpilot/internal/uitree/faketree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock drives the scheduler deterministically: ticks and follow-up
// timers fire only when the test says so.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickCh  chan time.Time
	afterCh chan time.Time
	armed   int
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		tickCh:  make(chan time.Time),
		afterCh: make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed++
	return c.afterCh
}

func (c *fakeClock) NewTicker(time.Duration) schemas.Ticker {
	return &fakeTicker{ch: c.tickCh}
}

func (c *fakeClock) armedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

type fakeTicker struct{ ch chan time.Time }

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

// scriptedSource returns a fresh tree with one accept button per call, so
// every cycle has something new to invoke.
type scriptedSource struct {
	mu      sync.Mutex
	calls   int
	buttons []*faketree.Element
}

func (s *scriptedSource) Tree(context.Context) (schemas.UITree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	button := faketree.NewButton("Accept")
	s.buttons = append(s.buttons, button)
	return faketree.NewTree(faketree.NewElement("main").Append(button)), nil
}

func emptySource() TreeSource {
	return TreeSourceFunc(func(context.Context) (schemas.UITree, error) {
		return faketree.NewTree(faketree.NewElement("main")), nil
	})
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Engine.MaxChainLength = 2
	return cfg
}

func newTestEngine(t *testing.T, source TreeSource) (*Engine, *fakeClock, schemas.SnapshotStore) {
	t.Helper()
	clock := newFakeClock()
	st := store.NewMemoryStore()
	eng, err := New(context.Background(), testConfig(), source, st, clock, zap.NewNop())
	require.NoError(t, err)
	return eng, clock, st
}

func TestNewStartsFromDefaultsWhenStoreIsEmpty(t *testing.T) {
	eng, _, _ := newTestEngine(t, emptySource())

	st := eng.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Zero(t, st.TotalClicks)
	assert.Equal(t, schemas.VariantCursor, st.Variant)
	assert.Equal(t, testConfig().Engine.PollInterval, st.PollInterval)
	assert.True(t, st.EnabledActions[schemas.ActionAccept])
}

func TestNewLoadsPersistedSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	snap := schemas.NewDefaultSnapshot(time.Now())
	snap.TotalClicks = 7
	snap.Config[schemas.ActionRun] = false
	require.NoError(t, st.Save(context.Background(), snap))

	eng, err := New(context.Background(), testConfig(), emptySource(), st, newFakeClock(), zap.NewNop())
	require.NoError(t, err)

	status := eng.Status()
	assert.Equal(t, 7, status.TotalClicks)
	assert.False(t, status.EnabledActions[schemas.ActionRun],
		"persisted operator choices win over config defaults")
}

// brokenStore fails every Load with a non-sentinel error, as a corrupt or
// unreadable backend would.
type brokenStore struct {
	loadErr error
	saves   int
}

func (s *brokenStore) Load(context.Context) (*schemas.EngineSnapshot, error) { return nil, s.loadErr }
func (s *brokenStore) Save(context.Context, *schemas.EngineSnapshot) error {
	s.saves++
	return nil
}
func (s *brokenStore) Clear(context.Context) error { return nil }
func (s *brokenStore) Close() error                { return nil }

func TestNewSurvivesSnapshotLoadFailure(t *testing.T) {
	st := &brokenStore{loadErr: errors.New("disk read failed")}
	eng, err := New(context.Background(), testConfig(), &scriptedSource{}, st, newFakeClock(), zap.NewNop())
	require.NoError(t, err, "a failing store degrades to in-memory defaults")

	status := eng.Status()
	assert.Zero(t, status.TotalClicks)
	assert.True(t, status.EnabledActions[schemas.ActionAccept])

	// The degraded engine still scans, acts and attempts to persist.
	require.True(t, eng.cycle(context.Background()))
	assert.Equal(t, 1, eng.Status().TotalClicks)
	assert.Positive(t, st.saves)
}

func TestCycleFallsBackToNextCandidate(t *testing.T) {
	stuck := faketree.NewButton("Accept All")
	stuck.PanicOnDispatch = true
	accept := faketree.NewButton("Accept")
	source := TreeSourceFunc(func(context.Context) (schemas.UITree, error) {
		return faketree.NewTree(faketree.NewElement("main").Append(stuck, accept)), nil
	})
	eng, _, _ := newTestEngine(t, source)

	require.True(t, eng.cycle(context.Background()),
		"a stuck top candidate must not stall the cycle")
	assert.Zero(t, stuck.Invoked)
	assert.Equal(t, 1, accept.Invoked)
	assert.Equal(t, 1, eng.Status().TotalClicks)
}

func TestNewDetectsVariantFromTree(t *testing.T) {
	source := TreeSourceFunc(func(context.Context) (schemas.UITree, error) {
		return faketree.NewTree(
			faketree.NewElement("div").Append(
				faketree.NewElement("div").WithClass("cascade-panel"),
				faketree.NewElement("div").WithClass("bg-ide-editor"),
				faketree.NewElement("div").WithClass("codeium-chat"),
			),
		), nil
	})
	eng, _, _ := newTestEngine(t, source)
	assert.Equal(t, schemas.VariantWindsurf, eng.Variant())
}

func TestNewHonorsVariantOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Detector.Override = string(schemas.VariantWindsurf)
	eng, err := New(context.Background(), cfg, emptySource(), store.NewMemoryStore(), newFakeClock(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, schemas.VariantWindsurf, eng.Variant())
}

func TestCycleInvokesTopCandidateAndPersists(t *testing.T) {
	source := &scriptedSource{}
	eng, _, st := newTestEngine(t, source)

	require.True(t, eng.cycle(context.Background()))

	status := eng.Status()
	assert.Equal(t, 1, status.TotalClicks)
	assert.Equal(t, 1, status.TotalAccepts)
	assert.Positive(t, status.TotalTimeSavedMs)

	source.mu.Lock()
	button := source.buttons[len(source.buttons)-1]
	source.mu.Unlock()
	assert.Equal(t, 1, button.Invoked)
	assert.NotEmpty(t, button.Dispatched)

	persisted, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, persisted.TotalClicks)
}

func TestCycleWithNothingActionable(t *testing.T) {
	eng, _, _ := newTestEngine(t, emptySource())
	assert.False(t, eng.cycle(context.Background()))
	assert.Zero(t, eng.Status().TotalClicks)
}

func TestCycleSkipsDisabledActionTypes(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	eng.Disable(context.Background(), schemas.ActionAccept)

	assert.False(t, eng.cycle(context.Background()),
		"the only candidate type is disabled")
	assert.Zero(t, eng.Status().TotalClicks)

	eng.Enable(context.Background(), schemas.ActionAccept)
	assert.True(t, eng.cycle(context.Background()))
}

func TestStartStopLifecycle(t *testing.T) {
	eng, clock, _ := newTestEngine(t, &scriptedSource{})
	ctx := context.Background()

	require.NoError(t, eng.Start(ctx))
	assert.Equal(t, StateRunning, eng.Status().State)
	assert.ErrorIs(t, eng.Start(ctx), ErrAlreadyRunning)

	// The immediate pass acts before any tick fires.
	require.Eventually(t, func() bool {
		return eng.Status().TotalClicks >= 1
	}, time.Second, time.Millisecond)

	// One tick, one more cycle.
	clock.tickCh <- clock.Now()
	require.Eventually(t, func() bool {
		return eng.Status().TotalClicks >= 2
	}, time.Second, time.Millisecond)

	eng.Stop()
	assert.Equal(t, StateStopped, eng.Status().State)
	eng.Stop() // idempotent
}

func TestStartResetsClickCounter(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	snap := schemas.NewDefaultSnapshot(time.Now())
	snap.TotalClicks = 7
	require.NoError(t, st.Save(ctx, snap))

	clock := newFakeClock()
	eng, err := New(ctx, testConfig(), &scriptedSource{}, st, clock, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 7, eng.Status().TotalClicks)

	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	// The stale counter is gone and the immediate pass counts from zero
	// without waiting for the first tick.
	require.Eventually(t, func() bool {
		return eng.Status().TotalClicks == 1
	}, time.Second, time.Millisecond)

	saved, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TotalClicks)
}

func TestFollowUpChainIsBounded(t *testing.T) {
	eng, clock, _ := newTestEngine(t, &scriptedSource{})
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	// The immediate pass succeeds and arms the first follow-up.
	require.Eventually(t, func() bool { return clock.armedCount() == 1 }, time.Second, time.Millisecond)

	// A tick resets the chain, acts and arms again.
	clock.tickCh <- clock.Now()
	require.Eventually(t, func() bool { return clock.armedCount() == 2 }, time.Second, time.Millisecond)

	// First follow-up cycle: chain 1 < 2, arms again.
	clock.afterCh <- clock.Now()
	require.Eventually(t, func() bool { return clock.armedCount() == 3 }, time.Second, time.Millisecond)

	// Second follow-up cycle: chain reaches the bound, no further arming.
	clock.afterCh <- clock.Now()
	require.Eventually(t, func() bool { return eng.Status().TotalClicks == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, clock.armedCount(), "chain must stop at max_chain_length")
}

func TestToggleFlipsAndPersists(t *testing.T) {
	eng, _, st := newTestEngine(t, emptySource())
	ctx := context.Background()

	assert.False(t, eng.Toggle(ctx, schemas.ActionRun))
	assert.True(t, eng.Toggle(ctx, schemas.ActionRun))

	eng.Disable(ctx, schemas.ActionRun)
	persisted, err := st.Load(ctx)
	require.NoError(t, err)
	assert.False(t, persisted.Config[schemas.ActionRun])
}

func TestEnableOnly(t *testing.T) {
	eng, _, _ := newTestEngine(t, emptySource())
	eng.EnableOnly(context.Background(), schemas.ActionAcceptAll, schemas.ActionKeepAll)

	enabled := eng.Status().EnabledActions
	assert.True(t, enabled[schemas.ActionAcceptAll])
	assert.True(t, enabled[schemas.ActionKeepAll])
	assert.False(t, enabled[schemas.ActionAccept])
	assert.False(t, enabled[schemas.ActionRun])
}

func TestEnableAllDisableAll(t *testing.T) {
	eng, _, _ := newTestEngine(t, emptySource())
	ctx := context.Background()

	eng.DisableAll(ctx)
	for _, on := range eng.Status().EnabledActions {
		assert.False(t, on)
	}

	eng.EnableAll(ctx)
	for _, on := range eng.Status().EnabledActions {
		assert.True(t, on)
	}
}

func TestCalibrateWorkflowTimes(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	ctx := context.Background()

	require.True(t, eng.cycle(ctx))
	before := eng.Status().TotalTimeSavedMs

	require.NoError(t, eng.CalibrateWorkflowTimes(ctx, 60000, 500))
	after := eng.Status().TotalTimeSavedMs
	assert.NotEqual(t, before, after)
	assert.Equal(t, int64(60000-500), after)

	report := eng.ValidateData()
	assert.True(t, report.Valid, "recalibration must keep the snapshot consistent")
}

func TestCalibrateRejectsInvalidBaselines(t *testing.T) {
	eng, _, _ := newTestEngine(t, emptySource())
	ctx := context.Background()
	assert.Error(t, eng.CalibrateWorkflowTimes(ctx, 0, 0))
	assert.Error(t, eng.CalibrateWorkflowTimes(ctx, 1000, 2000))
	assert.Error(t, eng.CalibrateWorkflowTimes(ctx, 1000, -1))
}

func TestClearAnalyticsKeepsConfiguration(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	ctx := context.Background()

	require.True(t, eng.cycle(ctx))
	eng.Disable(ctx, schemas.ActionRun)
	require.NoError(t, eng.CalibrateWorkflowTimes(ctx, 45000, 250))

	eng.ClearAnalytics(ctx)

	status := eng.Status()
	assert.Zero(t, status.TotalClicks)
	assert.Zero(t, status.TotalAccepts)
	assert.Zero(t, status.TotalTimeSavedMs)
	assert.False(t, status.EnabledActions[schemas.ActionRun], "configuration survives")

	snap := eng.Snapshot()
	assert.Equal(t, int64(45000), snap.ROITracking.AverageManualWorkflowMs,
		"calibrated baselines survive")
}

func TestClearStorageResetsEverything(t *testing.T) {
	source := &scriptedSource{}
	eng, _, st := newTestEngine(t, source)
	ctx := context.Background()

	require.True(t, eng.cycle(ctx))
	require.NoError(t, eng.ClearStorage(ctx))

	assert.Zero(t, eng.Status().TotalClicks)
	_, err := st.Load(ctx)
	assert.ErrorIs(t, err, schemas.ErrSnapshotNotFound)
}

func TestExportAnalytics(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	require.True(t, eng.cycle(context.Background()))

	out, err := eng.ExportAnalytics()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"exportedAt"`)
	assert.Contains(t, string(out), `"totalClicks": 1`)
}

func TestValidateDataAfterManyInvocations(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, eng.cycle(ctx))
	}

	report := eng.ValidateData()
	assert.True(t, report.Valid)
	assert.Equal(t, 5, eng.Status().TotalClicks)
}

func TestSnapshotReturnsDeepCopy(t *testing.T) {
	source := &scriptedSource{}
	eng, _, _ := newTestEngine(t, source)
	require.True(t, eng.cycle(context.Background()))

	snap := eng.Snapshot()
	snap.TotalClicks = 999
	snap.Config[schemas.ActionAccept] = false

	assert.Equal(t, 1, eng.Status().TotalClicks)
	assert.True(t, eng.Status().EnabledActions[schemas.ActionAccept])
}

func TestCycleSurvivesUnreachableHost(t *testing.T) {
	source := TreeSourceFunc(func(context.Context) (schemas.UITree, error) {
		return nil, context.DeadlineExceeded
	})
	cfg := testConfig()
	eng, err := New(context.Background(), cfg, source, store.NewMemoryStore(), newFakeClock(), zap.NewNop())
	require.NoError(t, err)

	assert.False(t, eng.cycle(context.Background()))
	assert.Equal(t, schemas.VariantCursor, eng.Variant(), "unreachable host keeps the baseline variant")
}
