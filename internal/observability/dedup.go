// File: internal/observability/dedup.go
package observability

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DedupCore suppresses repeated identical log lines within a fixed TTL
// window. The scheduler emits the same "no candidates" style messages every
// cycle; only the first occurrence inside the window reaches the wrapped
// core. Suppression is keyed on level + message and ignores fields.
type DedupCore struct {
	zapcore.Core
	window time.Duration
	state  *dedupState
}

// dedupState is shared by a core and all its With children so a Named/With
// logger does not restart the window.
type dedupState struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedupCore wraps core with a dedup window of the given TTL.
func NewDedupCore(core zapcore.Core, window time.Duration) *DedupCore {
	return &DedupCore{
		Core:   core,
		window: window,
		state:  &dedupState{seen: make(map[string]time.Time)},
	}
}

// Check implements zapcore.Core. Entries still inside the window are dropped
// before they reach the wrapped core.
func (c *DedupCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Core.Enabled(ent.Level) {
		return ce
	}
	if c.suppress(ent) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// With implements zapcore.Core.
func (c *DedupCore) With(fields []zapcore.Field) zapcore.Core {
	return &DedupCore{
		Core:   c.Core.With(fields),
		window: c.window,
		state:  c.state,
	}
}

func (c *DedupCore) suppress(ent zapcore.Entry) bool {
	key := ent.Level.String() + "\x00" + ent.Message
	now := time.Now()

	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.seen[key]; ok && now.Sub(last) < c.window {
		return true
	}
	s.seen[key] = now

	// Drop stale entries opportunistically so the map stays small.
	if len(s.seen) > 256 {
		for k, t := range s.seen {
			if now.Sub(t) >= c.window {
				delete(s.seen, k)
			}
		}
	}
	return false
}
