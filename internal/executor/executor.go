// File: internal/executor/executor.go
// Description: Invokes a chosen candidate through a multi-event synthetic
// input sequence after extracting contextual metadata from the surrounding
// conversation. Every stage of the sequence is best-effort; only an error
// escaping the whole sequence marks the invocation as failed.
package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// Executor dispatches synthetic input against candidate elements.
type Executor struct {
	tree     schemas.UITree
	logger   *zap.Logger
	lookback int
}

// New creates an executor over the given tree. lookback bounds how many
// recent conversation blocks metadata extraction searches.
func New(tree schemas.UITree, lookback int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookback <= 0 {
		lookback = 5
	}
	return &Executor{
		tree:     tree,
		logger:   logger.Named("executor"),
		lookback: lookback,
	}
}

// Invoke extracts change metadata for the candidate, then fires the
// synthetic input sequence. The returned stats are valid regardless of
// success; ok is false only when an unexpected failure escaped the whole
// sequence.
func (e *Executor) Invoke(ctx context.Context, cand schemas.ActionCandidate) (stats schemas.ChangeStats, ok bool) {
	if cand.Element == nil {
		return schemas.ChangeStats{}, false
	}

	stats = ExtractChangeStats(e.tree, cand.Element, e.lookback)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Synthetic input sequence aborted",
				zap.String("text", cand.Text), zap.Any("panic", r))
			ok = false
		}
	}()

	e.dispatchSequence(ctx, cand.Element)
	return stats, true
}

// dispatchSequence is the five-stage pointer/mouse sequence followed by the
// focus + Enter compatibility fallback. Individual event failures are
// swallowed so the remaining stages still fire; some hosts listen on
// pointer events, some on mouse events, some only on keyboard activation.
func (e *Executor) dispatchSequence(ctx context.Context, el schemas.UIElement) {
	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventPointerDown})
	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventMouseDown})

	// Direct invocation plus a synthesized click event: hosts differ on
	// which of the two they honor.
	if err := el.Invoke(ctx); err != nil {
		e.logger.Debug("Direct invocation failed", zap.Error(err))
	}
	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventClick})

	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventMouseUp})
	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventPointerUp})

	if err := el.Focus(ctx); err != nil {
		e.logger.Debug("Focus failed", zap.Error(err))
	}
	e.dispatch(ctx, el, schemas.InputEvent{Type: schemas.EventKeyDown, Key: "Enter"})
}

func (e *Executor) dispatch(ctx context.Context, el schemas.UIElement, ev schemas.InputEvent) {
	if err := el.Dispatch(ctx, ev); err != nil {
		e.logger.Debug("Synthetic event failed",
			zap.String("event", string(ev.Type)), zap.Error(err))
	}
}
