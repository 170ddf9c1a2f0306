// Package engine hosts the scan/act scheduler: the single loop that observes
// the host UI, invokes the highest-priority recognized action, records the
// outcome and persists the snapshot.
//
// All mutable state is confined to one goroutine plus a mutex-guarded control
// surface, an explicit Stopped/Running state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/analytics"
	"github.com/voxforge9/clickpilot/internal/classifier"
	"github.com/voxforge9/clickpilot/internal/config"
	"github.com/voxforge9/clickpilot/internal/detector"
	"github.com/voxforge9/clickpilot/internal/executor"
	"github.com/voxforge9/clickpilot/internal/scanner"
)

// TreeSource yields a fresh view of the host UI for each scan cycle. The live
// adapter re-captures the page; snapshot sources return the same parsed tree.
type TreeSource interface {
	Tree(ctx context.Context) (schemas.UITree, error)
}

// TreeSourceFunc adapts a function to the TreeSource interface.
type TreeSourceFunc func(ctx context.Context) (schemas.UITree, error)

func (f TreeSourceFunc) Tree(ctx context.Context) (schemas.UITree, error) { return f(ctx) }

// State is the scheduler's lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// ErrAlreadyRunning is returned by Start when the scheduler is active.
var ErrAlreadyRunning = errors.New("engine: already running")

// Status is a point-in-time summary of the engine for the control surface.
type Status struct {
	State            State                       `json:"state"`
	Variant          schemas.HostVariant         `json:"variant"`
	PollInterval     time.Duration               `json:"pollInterval"`
	TotalClicks      int                         `json:"totalClicks"`
	TotalAccepts     int                         `json:"totalAccepts"`
	TotalTimeSavedMs int64                       `json:"totalTimeSavedMs"`
	TrackedFiles     int                         `json:"trackedFiles"`
	EnabledActions   map[schemas.ActionType]bool `json:"enabledActions"`
}

// Engine owns the snapshot and drives the periodic scan/act cycle.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	source TreeSource
	store  schemas.SnapshotStore
	clock  schemas.Clock

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	snap     *schemas.EngineSnapshot
	recorder *analytics.Recorder
	cls      *classifier.Classifier
	variant  schemas.HostVariant
}

// New assembles an engine from its injected ports. The snapshot is loaded
// from the store, falling back to defaults seeded from the configuration when
// nothing has been persisted yet.
func New(ctx context.Context, cfg *config.Config, source TreeSource, store schemas.SnapshotStore, clock schemas.Clock, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	snap, err := store.Load(ctx)
	if err != nil {
		// A corrupt or unreadable store degrades to in-memory operation; only
		// a missing snapshot is the expected first-run path.
		if !errors.Is(err, schemas.ErrSnapshotNotFound) {
			logger.Warn("Snapshot load failed, continuing with in-memory defaults.", zap.Error(err))
		}
		snap = schemas.NewDefaultSnapshot(clock.Now())
		// Only a fresh snapshot takes its baselines and action flags from the
		// config file; persisted operator choices outlive restarts.
		if cfg.ROI.ManualWorkflowMs > 0 {
			snap.ROITracking.AverageManualWorkflowMs = cfg.ROI.ManualWorkflowMs
		}
		if cfg.ROI.AutomatedWorkflowMs >= 0 {
			snap.ROITracking.AverageAutomatedWorkflowMs = cfg.ROI.AutomatedWorkflowMs
		}
		snap.Config = cfg.Actions.EnabledTypes()
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger.Named("engine"),
		source:   source,
		store:    store,
		clock:    clock,
		snap:     snap,
		recorder: analytics.New(snap, logger),
		variant:  schemas.VariantCursor,
	}
	e.detectVariant(ctx)
	e.cls = classifier.New(e.variant, snap.Config, logger)
	return e, nil
}

// detectVariant resolves the host variant once, honoring the configured
// override. Detection failures keep the baseline.
func (e *Engine) detectVariant(ctx context.Context) {
	if o := e.cfg.Detector.Override; o != "" {
		e.variant = schemas.HostVariant(o)
		e.logger.Info("Host variant pinned by configuration.", zap.String("variant", o))
		return
	}
	tree, err := e.source.Tree(ctx)
	if err != nil {
		e.logger.Warn("Variant detection skipped, host unreachable. Using baseline.", zap.Error(err))
		return
	}
	e.variant = detector.Detect(tree, e.logger)
}

// Variant returns the detected (or pinned) host variant.
func (e *Engine) Variant() schemas.HostVariant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.variant
}

// Start transitions Stopped -> Running and launches the scheduler goroutine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	// Each session counts its own clicks; lifetime totals live in analytics.
	e.snap.TotalClicks = 0
	e.persistLocked(ctx)
	e.logger.Info("Engine started.",
		zap.String("variant", string(e.variant)),
		zap.Duration("poll_interval", e.cfg.Engine.PollInterval))
	go e.run(ctx, e.stopCh, e.doneCh)
	return nil
}

// Stop transitions Running -> Stopped and waits for the scheduler goroutine
// to exit. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	<-done
	e.logger.Info("Engine stopped.")
}

// run is the scheduler loop. A successful action schedules a short follow-up
// re-scan so burst sequences (accept, then run, then accept) resolve without
// waiting out the full poll interval; the chain is bounded so a pathological
// page cannot capture the loop.
func (e *Engine) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := e.clock.NewTicker(e.cfg.Engine.PollInterval)
	defer ticker.Stop()

	var followUp <-chan time.Time
	chain := 0

	// One immediate pass so a prompt already on screen is not left waiting
	// out the first poll interval.
	if e.cycle(ctx) {
		chain = 1
		followUp = e.clock.After(e.cfg.Engine.FollowUpDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C():
			chain = 0
			followUp = nil
			if e.cycle(ctx) {
				chain = 1
				followUp = e.clock.After(e.cfg.Engine.FollowUpDelay)
			}
		case <-followUp:
			followUp = nil
			if e.cycle(ctx) && chain < e.cfg.Engine.MaxChainLength {
				chain++
				followUp = e.clock.After(e.cfg.Engine.FollowUpDelay)
			}
		}
	}
}

// cycle performs one scan/act pass and reports whether an action was invoked.
func (e *Engine) cycle(ctx context.Context) bool {
	tree, err := e.source.Tree(ctx)
	if err != nil {
		e.logger.Warn("Scan skipped, host unreachable.", zap.Error(err))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sc := scanner.New(tree, e.variant, e.cls, e.cfg.Engine.SiblingWalkDepth, e.logger)
	candidates := classifier.DedupeAndPrioritize(sc.FindActionableElements())
	if len(candidates) == 0 {
		return false
	}

	ex := executor.New(tree, e.cfg.Engine.MessageLookback, e.logger)
	for _, cand := range candidates {
		stats, ok := ex.Invoke(ctx, cand)
		if !ok {
			// A stuck candidate must not stall the cycle; fall through to
			// the next entry in priority order.
			e.logger.Debug("Invocation failed, trying next candidate.",
				zap.String("text", cand.Text),
				zap.String("type", string(cand.Type)))
			continue
		}

		actionType := analytics.NormalizeAction(cand.Type, cand.ResumeLink)
		event := e.recorder.RecordInvocation(stats, actionType, e.clock.Now())
		e.snap.TotalClicks++
		e.persistLocked(ctx)

		e.logger.Info("Action invoked.",
			zap.String("type", string(actionType)),
			zap.String("text", cand.Text),
			zap.String("file", event.Filename),
			zap.Int64("time_saved_ms", event.TimeSavedMs))
		return true
	}
	return false
}

// persistLocked saves the snapshot. Persistence failures are logged, never
// fatal: the engine keeps operating on in-memory state.
func (e *Engine) persistLocked(ctx context.Context) {
	e.snap.SavedAt = e.clock.Now()
	if err := e.store.Save(ctx, e.snap); err != nil {
		e.logger.Error("Snapshot persistence failed.", zap.Error(err))
	}
}

// -- Control surface --

// Status reports the current lifecycle state and headline totals.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := StateStopped
	if e.running {
		state = StateRunning
	}
	enabled := make(map[schemas.ActionType]bool, len(e.snap.Config))
	for t, on := range e.snap.Config {
		enabled[t] = on
	}
	return Status{
		State:            state,
		Variant:          e.variant,
		PollInterval:     e.cfg.Engine.PollInterval,
		TotalClicks:      e.snap.TotalClicks,
		TotalAccepts:     e.snap.Analytics.TotalAccepts,
		TotalTimeSavedMs: e.snap.ROITracking.TotalTimeSavedMs,
		TrackedFiles:     len(e.snap.Analytics.Files),
		EnabledActions:   enabled,
	}
}

// Enable turns one action type on.
func (e *Engine) Enable(ctx context.Context, t schemas.ActionType) {
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) { cfg[t] = true })
}

// Disable turns one action type off.
func (e *Engine) Disable(ctx context.Context, t schemas.ActionType) {
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) { cfg[t] = false })
}

// Toggle flips one action type and returns its new state. Types never
// configured start from enabled.
func (e *Engine) Toggle(ctx context.Context, t schemas.ActionType) bool {
	var now bool
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) {
		on, ok := cfg[t]
		if !ok {
			on = true
		}
		cfg[t] = !on
		now = !on
	})
	return now
}

// EnableAll turns every recognized action type on.
func (e *Engine) EnableAll(ctx context.Context) {
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) {
		for t := range cfg {
			cfg[t] = true
		}
		for _, t := range schemas.RankedActionTypes {
			cfg[t] = true
		}
	})
}

// DisableAll turns every recognized action type off.
func (e *Engine) DisableAll(ctx context.Context) {
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) {
		for t := range cfg {
			cfg[t] = false
		}
		for _, t := range schemas.RankedActionTypes {
			cfg[t] = false
		}
	})
}

// EnableOnly enables exactly the given types and disables the rest.
func (e *Engine) EnableOnly(ctx context.Context, types ...schemas.ActionType) {
	e.setEnabled(ctx, func(cfg map[schemas.ActionType]bool) {
		for t := range cfg {
			cfg[t] = false
		}
		for _, t := range schemas.RankedActionTypes {
			cfg[t] = false
		}
		for _, t := range types {
			cfg[t] = true
		}
	})
}

func (e *Engine) setEnabled(ctx context.Context, mutate func(map[schemas.ActionType]bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.Config == nil {
		e.snap.Config = schemas.DefaultActionConfig()
	}
	mutate(e.snap.Config)
	e.cls.SetEnabled(e.snap.Config)
	e.persistLocked(ctx)
}

// CalibrateWorkflowTimes replaces both workflow baselines and recomputes all
// stored time-saved values.
func (e *Engine) CalibrateWorkflowTimes(ctx context.Context, manualMs, automatedMs int64) error {
	if manualMs <= 0 || automatedMs < 0 || automatedMs >= manualMs {
		return fmt.Errorf("engine: invalid workflow baselines manual=%d automated=%d", manualMs, automatedMs)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder.Calibrate(manualMs, automatedMs)
	e.persistLocked(ctx)
	return nil
}

// ExportAnalytics serializes the full snapshot for external analysis.
func (e *Engine) ExportAnalytics() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return analytics.Export(e.snap, e.clock.Now())
}

// ClearAnalytics resets the audit log, file index and ROI sessions while
// keeping the calibrated baselines and action configuration.
func (e *Engine) ClearAnalytics(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder.Reset(e.clock.Now())
	e.snap.TotalClicks = 0
	e.persistLocked(ctx)
}

// ClearStorage removes the persisted snapshot entirely and reinitializes the
// in-memory state to defaults.
func (e *Engine) ClearStorage(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("engine: clear storage: %w", err)
	}
	e.snap = schemas.NewDefaultSnapshot(e.clock.Now())
	e.recorder = analytics.New(e.snap, e.logger)
	e.cls.SetEnabled(e.snap.Config)
	return nil
}

// ValidateData cross-checks the snapshot's derived counters against its
// append-only event log.
func (e *Engine) ValidateData() analytics.ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return analytics.Validate(e.snap)
}

// Snapshot returns a deep copy of the current snapshot for inspection.
func (e *Engine) Snapshot() *schemas.EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := *e.snap
	cp.Config = make(map[schemas.ActionType]bool, len(e.snap.Config))
	for t, on := range e.snap.Config {
		cp.Config[t] = on
	}
	cp.Analytics.Sessions = append([]schemas.SessionEvent(nil), e.snap.Analytics.Sessions...)
	cp.Analytics.Files = make(schemas.FileMap, len(e.snap.Analytics.Files))
	for name, rec := range e.snap.Analytics.Files {
		rc := *rec
		rc.ActionCounts = make(map[schemas.ActionType]int, len(rec.ActionCounts))
		for t, n := range rec.ActionCounts {
			rc.ActionCounts[t] = n
		}
		cp.Analytics.Files[name] = &rc
	}
	cp.ROITracking.WorkflowSessions = append([]schemas.WorkflowSession(nil), e.snap.ROITracking.WorkflowSessions...)
	return &cp
}
