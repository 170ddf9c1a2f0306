// Package cdptree adapts a live Chrome DevTools Protocol session to the
// schemas.UITree port.
//
// Reads are served from a frozen HTML snapshot refreshed once per scan cycle;
// input dispatch resolves the element back to the live page by its generated
// XPath and delivers raw CDP input events.
package cdptree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/uitree/htmltree"
)

// ErrDetached is returned when an element present in the last snapshot can no
// longer be located in the live page.
var ErrDetached = errors.New("cdptree: element detached from live page")

const (
	refreshTimeout  = 15 * time.Second
	dispatchTimeout = 10 * time.Second
)

// Session owns the CDP connection to the host application's devtools
// endpoint.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// Attach connects to a running host at the given devtools websocket URL.
func Attach(parent context.Context, devtoolsURL string, logger *zap.Logger) (*Session, error) {
	if devtoolsURL == "" {
		return nil, errors.New("cdptree: devtools URL is required")
	}
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(parent, devtoolsURL)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Fail fast if the endpoint is unreachable rather than on first scan.
	probeCtx, probeCancel := context.WithTimeout(ctx, refreshTimeout)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("cdptree: attach to %q: %w", devtoolsURL, err)
	}

	return &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.Named("cdptree"),
	}, nil
}

// Close tears down the CDP connection.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// Refresh captures the page's rendered HTML and wraps it as a live tree.
// Elements found in the returned tree dispatch input against this session.
func (s *Session) Refresh(ctx context.Context) (*Tree, error) {
	opCtx, opCancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer opCancel()

	var outer, location, title string
	err := chromedp.Run(opCtx,
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &outer, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("cdptree: capture page: %w", err)
	}

	frozen, err := htmltree.Parse(strings.NewReader(outer), location)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Page snapshot refreshed.",
		zap.String("address", location),
		zap.String("title", title))
	return &Tree{frozen: frozen, sess: s}, nil
}

// Tree implements schemas.UITree by delegating reads to the frozen snapshot
// and binding returned elements to the live session.
type Tree struct {
	frozen *htmltree.Tree
	sess   *Session
}

var _ schemas.UITree = (*Tree)(nil)

func (t *Tree) Address() string { return t.frozen.Address() }
func (t *Tree) Title() string   { return t.frozen.Title() }

func (t *Tree) Root() schemas.UIElement {
	return t.wrap(t.frozen.Root())
}

func (t *Tree) Find(match func(schemas.UIElement) bool) []schemas.UIElement {
	frozen := t.frozen.Find(func(el schemas.UIElement) bool {
		return match(t.wrap(el))
	})
	out := make([]schemas.UIElement, len(frozen))
	for i, el := range frozen {
		out[i] = t.wrap(el)
	}
	return out
}

func (t *Tree) SubDocuments() []schemas.UITree {
	subs := t.frozen.SubDocuments()
	out := make([]schemas.UITree, 0, len(subs))
	for _, sub := range subs {
		if st, ok := sub.(*htmltree.Tree); ok {
			out = append(out, &Tree{frozen: st, sess: t.sess})
		}
	}
	return out
}

func (t *Tree) wrap(el schemas.UIElement) schemas.UIElement {
	fe, ok := el.(*htmltree.Element)
	if !ok || fe == nil {
		return el
	}
	return &Element{frozen: fe, tree: t}
}

// Element is a live handle: snapshot-backed reads, CDP-backed input.
type Element struct {
	frozen *htmltree.Element
	tree   *Tree
}

var _ schemas.UIElement = (*Element)(nil)

func (e *Element) Key() string                       { return e.frozen.Key() }
func (e *Element) TagName() string                   { return e.frozen.TagName() }
func (e *Element) Text() string                      { return e.frozen.Text() }
func (e *Element) Attribute(n string) (string, bool) { return e.frozen.Attribute(n) }
func (e *Element) ClassName() string                 { return e.frozen.ClassName() }
func (e *Element) BoundingBox() schemas.Rect         { return e.frozen.BoundingBox() }
func (e *Element) Style() schemas.ComputedStyle      { return e.frozen.Style() }

func (e *Element) Parent() schemas.UIElement {
	p := e.frozen.Parent()
	if p == nil {
		return nil
	}
	return e.tree.wrap(p)
}

func (e *Element) Children() []schemas.UIElement {
	kids := e.frozen.Children()
	out := make([]schemas.UIElement, len(kids))
	for i, c := range kids {
		out[i] = e.tree.wrap(c)
	}
	return out
}

func (e *Element) PrecedingSiblings(max int) []schemas.UIElement {
	sibs := e.frozen.PrecedingSiblings(max)
	out := make([]schemas.UIElement, len(sibs))
	for i, s := range sibs {
		out[i] = e.tree.wrap(s)
	}
	return out
}

// Dispatch maps one synthetic event stage onto the CDP input stream. CDP has
// a single mouse event channel, so the pointer stages map onto it: the
// pointerdown stage moves the cursor over the element, the press/release pair
// lands on mousedown/mouseup, and the stages that pair already covers are
// acknowledged without a wire event.
func (e *Element) Dispatch(ctx context.Context, ev schemas.InputEvent) error {
	sess := e.tree.sess
	opCtx, opCancel := context.WithTimeout(sess.ctx, dispatchTimeout)
	defer opCancel()

	switch ev.Type {
	case schemas.EventPointerDown:
		return e.dispatchMouse(opCtx, input.MouseMoved)
	case schemas.EventMouseDown:
		return e.dispatchMouse(opCtx, input.MousePressed)
	case schemas.EventMouseUp:
		return e.dispatchMouse(opCtx, input.MouseReleased)
	case schemas.EventClick, schemas.EventPointerUp:
		// Covered by the mousedown/mouseup pair on the CDP side.
		return nil
	case schemas.EventKeyDown:
		key := ev.Key
		if key == "" {
			return errors.New("cdptree: keydown event without a key")
		}
		return chromedp.Run(opCtx,
			input.DispatchKeyEvent(input.KeyDown).WithKey(key),
			input.DispatchKeyEvent(input.KeyUp).WithKey(key),
		)
	default:
		return fmt.Errorf("cdptree: unsupported event type %q", ev.Type)
	}
}

// Invoke performs the host-native click on the element located by XPath.
func (e *Element) Invoke(ctx context.Context) error {
	sess := e.tree.sess
	opCtx, opCancel := context.WithTimeout(sess.ctx, dispatchTimeout)
	defer opCancel()
	if err := chromedp.Run(opCtx, chromedp.Click(e.Key(), chromedp.BySearch)); err != nil {
		return fmt.Errorf("cdptree: click %s: %w", e.Key(), err)
	}
	return nil
}

func (e *Element) Focus(ctx context.Context) error {
	sess := e.tree.sess
	opCtx, opCancel := context.WithTimeout(sess.ctx, dispatchTimeout)
	defer opCancel()
	if err := chromedp.Run(opCtx, chromedp.Focus(e.Key(), chromedp.BySearch)); err != nil {
		return fmt.Errorf("cdptree: focus %s: %w", e.Key(), err)
	}
	return nil
}

func (e *Element) dispatchMouse(opCtx context.Context, mouseType input.MouseType) error {
	x, y, err := e.liveCenter(opCtx)
	if err != nil {
		return err
	}
	p := input.DispatchMouseEvent(mouseType, x, y)
	if mouseType == input.MousePressed || mouseType == input.MouseReleased {
		p = p.WithButton(input.Left).WithClickCount(1)
		if mouseType == input.MousePressed {
			p = p.WithButtons(1)
		}
	}
	if err := chromedp.Run(opCtx, p); err != nil {
		return fmt.Errorf("cdptree: dispatch %s at (%.0f, %.0f): %w", mouseType, x, y, err)
	}
	return nil
}

// liveCenter resolves the element on the live page and returns the center of
// its content box. The page may have changed since the snapshot, so a miss is
// reported as ErrDetached.
func (e *Element) liveCenter(opCtx context.Context) (float64, float64, error) {
	xpath := e.Key()
	var nodes []*cdp.Node
	err := chromedp.Run(opCtx,
		chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("cdptree: resolve %s: %w", xpath, err)
	}
	if len(nodes) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrDetached, xpath)
	}

	var x, y float64
	err = chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return err
		}
		// Content quad is [x1 y1 x2 y2 x3 y3 x4 y4]; average the vertices.
		if len(box.Content) < 8 {
			return fmt.Errorf("%w: degenerate box for %s", ErrDetached, xpath)
		}
		for i := 0; i < 8; i += 2 {
			x += box.Content[i]
			y += box.Content[i+1]
		}
		x /= 4
		y /= 4
		return nil
	}))
	if err != nil {
		return 0, 0, fmt.Errorf("cdptree: box model for %s: %w", xpath, err)
	}
	return x, y, nil
}
