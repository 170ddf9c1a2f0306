// Package htmltree adapts a parsed HTML document to the schemas.UITree port.
//
// The tree is frozen: it supports the full read surface (geometry from inline
// styles, computed-style subset, sibling walks) but rejects input dispatch.
// It backs offline snapshot scans and is the read model the live CDP adapter
// refreshes into.
package htmltree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// ErrFrozenTree is returned by Dispatch, Invoke and Focus: a parsed snapshot
// has no live session to deliver input to.
var ErrFrozenTree = errors.New("htmltree: input dispatch on a frozen snapshot")

// Default geometry for elements that carry no explicit size. Snapshot HTML
// rarely has inline dimensions, and a zero box would make every element fail
// the visibility predicate.
const (
	defaultBoxWidth  = 120.0
	defaultBoxHeight = 24.0
)

// Tree implements schemas.UITree over a parsed *html.Node document.
type Tree struct {
	doc     *html.Node
	address string
	title   string
	subs    []schemas.UITree
}

var _ schemas.UITree = (*Tree)(nil)

// Parse reads and parses an HTML document, collecting embedded iframe[srcdoc]
// documents as sub-trees.
func Parse(r io.Reader, address string) (*Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmltree: parse %q: %w", address, err)
	}
	return FromNode(doc, address)
}

// FromNode wraps an already parsed document root.
func FromNode(doc *html.Node, address string) (*Tree, error) {
	t := &Tree{doc: doc, address: address}
	if titleNode := htmlquery.FindOne(doc, "//title"); titleNode != nil {
		t.title = strings.TrimSpace(htmlquery.InnerText(titleNode))
	}
	for _, frame := range htmlquery.Find(doc, "//iframe[@srcdoc]") {
		srcdoc := htmlquery.SelectAttr(frame, "srcdoc")
		if srcdoc == "" {
			continue
		}
		subAddr := htmlquery.SelectAttr(frame, "src")
		if subAddr == "" {
			subAddr = address + "#frame"
		}
		sub, err := Parse(strings.NewReader(srcdoc), subAddr)
		if err != nil {
			// A malformed frame must not sink the outer document.
			continue
		}
		t.subs = append(t.subs, sub)
	}
	return t, nil
}

func (t *Tree) Address() string { return t.address }
func (t *Tree) Title() string   { return t.title }

func (t *Tree) SubDocuments() []schemas.UITree { return t.subs }

// Root returns the document's body element, falling back to the document node
// for fragments without one.
func (t *Tree) Root() schemas.UIElement {
	if body := htmlquery.FindOne(t.doc, "//body"); body != nil {
		return &Element{node: body, tree: t}
	}
	return &Element{node: t.doc, tree: t}
}

// Find walks the element tree depth-first and returns matches in document
// order.
func (t *Tree) Find(match func(schemas.UIElement) bool) []schemas.UIElement {
	var out []schemas.UIElement
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			el := &Element{node: n, tree: t}
			if match(el) {
				out = append(out, el)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.doc)
	return out
}

// Element implements schemas.UIElement over a single *html.Node.
type Element struct {
	node *html.Node
	tree *Tree
}

var _ schemas.UIElement = (*Element)(nil)

// Node exposes the underlying parse node so live adapters can resolve the
// element back to a session-side handle.
func (e *Element) Node() *html.Node { return e.node }

// Key is the element's generated XPath, stable for the lifetime of the parsed
// tree and unique per node.
func (e *Element) Key() string {
	return GenerateXPath(e.node)
}

func (e *Element) TagName() string {
	return strings.ToLower(e.node.Data)
}

func (e *Element) Text() string {
	return htmlquery.InnerText(e.node)
}

func (e *Element) Attribute(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) ClassName() string {
	v, _ := e.Attribute("class")
	return v
}

// BoundingBox derives geometry from inline style or width/height attributes.
// Elements without explicit sizing get a nominal non-zero box.
func (e *Element) BoundingBox() schemas.Rect {
	decls := e.inlineStyle()
	box := schemas.Rect{Width: defaultBoxWidth, Height: defaultBoxHeight}
	if w, ok := parsePixels(decls["width"]); ok {
		box.Width = w
	} else if attr, ok := e.Attribute("width"); ok {
		if w, ok := parsePixels(attr); ok {
			box.Width = w
		}
	}
	if h, ok := parsePixels(decls["height"]); ok {
		box.Height = h
	} else if attr, ok := e.Attribute("height"); ok {
		if h, ok := parsePixels(attr); ok {
			box.Height = h
		}
	}
	if l, ok := parsePixels(decls["left"]); ok {
		box.X = l
	}
	if t, ok := parsePixels(decls["top"]); ok {
		box.Y = t
	}
	return box
}

// Style resolves the computed-style subset from the element's inline style
// declarations. Absent declarations take interactive defaults.
func (e *Element) Style() schemas.ComputedStyle {
	decls := e.inlineStyle()
	style := schemas.ComputedStyle{
		Visibility:    "visible",
		Opacity:       1,
		PointerEvents: "auto",
	}
	if v, ok := decls["display"]; ok {
		style.Display = v
	}
	if v, ok := decls["visibility"]; ok {
		style.Visibility = v
	}
	if v, ok := decls["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			style.Opacity = f
		}
	}
	if v, ok := decls["cursor"]; ok {
		style.Cursor = v
	}
	if v, ok := decls["pointer-events"]; ok {
		style.PointerEvents = v
	}
	return style
}

func (e *Element) Parent() schemas.UIElement {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return &Element{node: p, tree: e.tree}
		}
	}
	return nil
}

func (e *Element) Children() []schemas.UIElement {
	var out []schemas.UIElement
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{node: c, tree: e.tree})
		}
	}
	return out
}

// PrecedingSiblings returns up to max earlier element siblings, nearest first.
func (e *Element) PrecedingSiblings(max int) []schemas.UIElement {
	var out []schemas.UIElement
	for prev := e.node.PrevSibling; prev != nil && len(out) < max; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode {
			out = append(out, &Element{node: prev, tree: e.tree})
		}
	}
	return out
}

func (e *Element) Dispatch(ctx context.Context, ev schemas.InputEvent) error {
	return ErrFrozenTree
}

func (e *Element) Invoke(ctx context.Context) error { return ErrFrozenTree }

func (e *Element) Focus(ctx context.Context) error { return ErrFrozenTree }

// inlineStyle parses the style attribute into lowercase property/value pairs.
func (e *Element) inlineStyle() map[string]string {
	raw, ok := e.Attribute("style")
	if !ok || raw == "" {
		return nil
	}
	decls := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		if prop != "" && val != "" {
			decls[prop] = val
		}
	}
	return decls
}

// parsePixels reads a CSS length like "120px" or a bare number.
func parsePixels(v string) (float64, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// GenerateXPath builds a stable XPath for a node, anchoring on the nearest
// ancestor ID when one exists.
func GenerateXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}

		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		// An ID anchors the path; everything above it is irrelevant.
		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			path = append(path, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		// 1-based index among same-tag siblings.
		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}
