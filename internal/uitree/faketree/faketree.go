// File: internal/uitree/faketree/faketree.go
// Description: In-memory implementation of the UI tree ports. Built by tests
// (and nothing else in production) to exercise the scanner, classifier,
// executor and engine without a live host.
package faketree

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/voxforge9/clickpilot/api/schemas"
)

var nextKey atomic.Int64

// Element is a mutable fake UI element. Zero values render as a visible,
// interactive block so tests only set what they assert on.
type Element struct {
	key  string
	Tag  string
	Own  string // own text, excluding descendants
	Attrs map[string]string
	Box  schemas.Rect
	CSS  schemas.ComputedStyle

	parent   *Element
	children []*Element

	// Interaction recording.
	Dispatched []schemas.InputEvent
	Invoked    int
	Focused    int

	// Failure injection.
	DispatchErr     error
	InvokeErr       error
	PanicOnDispatch bool
}

// NewElement creates a visible, interactive element with sane defaults.
func NewElement(tag string) *Element {
	return &Element{
		key:   fmt.Sprintf("fake-%d", nextKey.Add(1)),
		Tag:   tag,
		Attrs: map[string]string{},
		Box:   schemas.Rect{Width: 120, Height: 24},
		CSS:   schemas.ComputedStyle{Display: "block", Visibility: "visible", Opacity: 1},
	}
}

// NewButton creates a button element with the given visible text.
func NewButton(text string) *Element {
	el := NewElement("button")
	el.Own = text
	return el
}

func (e *Element) WithText(text string) *Element { e.Own = text; return e }

func (e *Element) WithClass(class string) *Element {
	e.Attrs["class"] = class
	return e
}

func (e *Element) WithAttr(name, value string) *Element {
	e.Attrs[name] = value
	return e
}

func (e *Element) WithStyle(css schemas.ComputedStyle) *Element { e.CSS = css; return e }

func (e *Element) WithBox(box schemas.Rect) *Element { e.Box = box; return e }

// Append attaches children and returns the parent for chaining.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

// -- schemas.UIElement --

func (e *Element) Key() string     { return e.key }
func (e *Element) TagName() string { return e.Tag }

// Text returns own text plus descendant text, approximating innerText.
func (e *Element) Text() string {
	parts := []string{}
	if e.Own != "" {
		parts = append(parts, e.Own)
	}
	for _, c := range e.children {
		if t := c.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Element) Attribute(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

func (e *Element) ClassName() string             { return e.Attrs["class"] }
func (e *Element) BoundingBox() schemas.Rect     { return e.Box }
func (e *Element) Style() schemas.ComputedStyle  { return e.CSS }

func (e *Element) Parent() schemas.UIElement {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Children() []schemas.UIElement {
	out := make([]schemas.UIElement, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}
	return out
}

func (e *Element) PrecedingSiblings(max int) []schemas.UIElement {
	if e.parent == nil {
		return nil
	}
	idx := -1
	for i, c := range e.parent.children {
		if c == e {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil
	}
	var out []schemas.UIElement
	for i := idx - 1; i >= 0 && len(out) < max; i-- {
		out = append(out, e.parent.children[i])
	}
	return out
}

func (e *Element) Dispatch(_ context.Context, ev schemas.InputEvent) error {
	if e.PanicOnDispatch {
		panic("faketree: forced dispatch panic")
	}
	if e.DispatchErr != nil {
		return e.DispatchErr
	}
	e.Dispatched = append(e.Dispatched, ev)
	return nil
}

func (e *Element) Invoke(_ context.Context) error {
	if e.InvokeErr != nil {
		return e.InvokeErr
	}
	e.Invoked++
	return nil
}

func (e *Element) Focus(_ context.Context) error {
	e.Focused++
	return nil
}

// -- Tree --

// Tree is the fake document.
type Tree struct {
	root    *Element
	subdocs []*Tree
	address string
	title   string
}

// NewTree builds a document around the given root element.
func NewTree(root *Element) *Tree {
	return &Tree{root: root}
}

func (t *Tree) WithAddress(addr string) *Tree { t.address = addr; return t }
func (t *Tree) WithTitle(title string) *Tree  { t.title = title; return t }

// AddSubDocument attaches an embedded document.
func (t *Tree) AddSubDocument(sub *Tree) *Tree {
	t.subdocs = append(t.subdocs, sub)
	return t
}

// -- schemas.UITree --

func (t *Tree) Root() schemas.UIElement { return t.root }

func (t *Tree) Find(match func(schemas.UIElement) bool) []schemas.UIElement {
	var out []schemas.UIElement
	var walk func(el *Element)
	walk = func(el *Element) {
		if match(el) {
			out = append(out, el)
		}
		for _, c := range el.children {
			walk(c)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	return out
}

func (t *Tree) SubDocuments() []schemas.UITree {
	out := make([]schemas.UITree, len(t.subdocs))
	for i, s := range t.subdocs {
		out[i] = s
	}
	return out
}

func (t *Tree) Address() string { return t.address }
func (t *Tree) Title() string   { return t.title }
