// File: api/schemas/ports.go
// Description: Port interfaces injected into the engine. Production adapters
// live under internal/uitree and internal/store; tests use in-memory fakes.
package schemas

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by SnapshotStore.Load when nothing has been
// persisted yet. Callers treat it as "start from defaults", not a failure.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// EventType names one stage of the synthetic input sequence.
type EventType string

const (
	EventPointerDown EventType = "pointerdown"
	EventMouseDown   EventType = "mousedown"
	EventClick       EventType = "click"
	EventMouseUp     EventType = "mouseup"
	EventPointerUp   EventType = "pointerup"
	EventKeyDown     EventType = "keydown"
)

// InputEvent is one programmatically constructed event of a synthetic input
// sequence dispatched to emulate a real user interaction.
type InputEvent struct {
	Type EventType
	// Key carries the key identifier for keyboard events ("Enter").
	Key string
}

// Rect is an element's rendered bounding geometry, in CSS pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ComputedStyle is the subset of resolved styling the engine's visibility and
// interactivity predicates inspect.
type ComputedStyle struct {
	Display       string
	Visibility    string
	Opacity       float64
	Cursor        string
	PointerEvents string
}

// UIElement is the capability interface over one node of the host's rendered
// element tree. Adapters implement it over a live CDP session, a parsed HTML
// snapshot, or an in-memory fake.
type UIElement interface {
	// Key returns a stable identity for deduplication. Two handles to the
	// same underlying element must return the same key within one scan.
	Key() string
	TagName() string
	// Text returns the element's visible text content, untrimmed.
	Text() string
	Attribute(name string) (string, bool)
	ClassName() string
	BoundingBox() Rect
	Style() ComputedStyle
	Parent() UIElement
	Children() []UIElement
	// PrecedingSiblings returns up to max earlier siblings, nearest first.
	PrecedingSiblings(max int) []UIElement
	// Dispatch delivers one synthetic event. Implementations report, not
	// panic, on detached elements.
	Dispatch(ctx context.Context, ev InputEvent) error
	// Invoke performs the element's direct activation (the host-native
	// click), distinct from the synthesized mouse click event.
	Invoke(ctx context.Context) error
	Focus(ctx context.Context) error
}

// UITree is the accessor port over one document of the host UI.
type UITree interface {
	Root() UIElement
	// Find walks the visible tree depth-first and returns every element the
	// predicate accepts, in document order.
	Find(match func(UIElement) bool) []UIElement
	// SubDocuments returns embedded documents reachable without cross-origin
	// restriction. Inaccessible frames are simply absent.
	SubDocuments() []UITree
	// Address is the document's location (URL or equivalent host address).
	Address() string
	Title() string
}

// SnapshotStore is the persistence port: load/save/clear of the serialized
// engine snapshot under a single durable per-origin key.
type SnapshotStore interface {
	Load(ctx context.Context) (*EngineSnapshot, error)
	Save(ctx context.Context, snap *EngineSnapshot) error
	Clear(ctx context.Context) error
	Close() error
}

// Ticker abstracts time.Ticker for the clock port.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is the time source injected into the scheduler so cycle timing is
// deterministic under test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}
