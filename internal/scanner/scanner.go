// File: internal/scanner/scanner.go
// Description: Traverses the visible UI tree, including reachable embedded
// sub-documents, through layered strategies: a broad global fallback scan
// first for recall, then host-variant specific scans, then the two special
// categories (resume links, connection-failure buttons). Every strategy is
// isolated: a failing or empty strategy never aborts the cycle.
package scanner

import (
	"strings"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/classifier"
)

// Scanner produces the candidate list for one cycle.
type Scanner struct {
	tree       schemas.UITree
	variant    schemas.HostVariant
	classifier *classifier.Classifier
	logger     *zap.Logger

	// siblingWalkDepth bounds the preceding-sibling walk of the baseline
	// host-specific scan.
	siblingWalkDepth int
}

// New creates a scanner over the given tree for the detected variant.
func New(tree schemas.UITree, variant schemas.HostVariant, cls *classifier.Classifier, siblingWalkDepth int, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if siblingWalkDepth <= 0 {
		siblingWalkDepth = 15
	}
	return &Scanner{
		tree:             tree,
		variant:          variant,
		classifier:       cls,
		logger:           logger.Named("scanner"),
		siblingWalkDepth: siblingWalkDepth,
	}
}

// FindActionableElements runs every strategy and returns the union of the
// classified candidates, in discovery order. Callers deduplicate and
// prioritize the result.
func (s *Scanner) FindActionableElements() []schemas.ActionCandidate {
	var candidates []schemas.ActionCandidate

	// The global fallback always runs first to maximize recall; the
	// host-specific strategies refine on top of it.
	candidates = append(candidates, s.runStrategy("global-fallback", s.globalScan)...)

	switch s.variant {
	case schemas.VariantWindsurf:
		candidates = append(candidates, s.runStrategy("windsurf-selectors", s.windsurfScan)...)
	default:
		candidates = append(candidates, s.runStrategy("anchor-siblings", s.anchorScan)...)
		candidates = append(candidates, s.runStrategy("conversation-blocks", s.conversationScan)...)
		candidates = append(candidates, s.runStrategy("modal-overlay", s.modalScan)...)
	}

	candidates = append(candidates, s.runStrategy("resume-links", s.resumeLinkScan)...)
	candidates = append(candidates, s.runStrategy("connection-failure", s.connectionFailureScan)...)

	return candidates
}

// runStrategy isolates one strategy: adapter panics (detached nodes,
// cross-origin frames) degrade to zero candidates for that strategy.
func (s *Scanner) runStrategy(name string, fn func() []schemas.ActionCandidate) (out []schemas.ActionCandidate) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("Scan strategy failed",
				zap.String("strategy", name), zap.Any("panic", r))
			out = nil
		}
	}()
	out = fn()
	if len(out) > 0 {
		s.logger.Debug("Scan strategy produced candidates",
			zap.String("strategy", name), zap.Int("count", len(out)))
	}
	return out
}

// documents returns the main tree plus every reachable sub-document.
// Cross-origin or detached frames are simply absent from the adapter's list.
func (s *Scanner) documents() []schemas.UITree {
	docs := []schemas.UITree{s.tree}
	docs = append(docs, s.tree.SubDocuments()...)
	return docs
}

// -- Global fallback --

// clickableClassFragments are generic class-name patterns that mark
// clickable controls across the recognized hosts.
var clickableClassFragments = []string{
	"button", "btn", "clickable", "anysphere-text-button", "cursor-button",
}

// globalScan applies broad structural heuristics in every reachable
// document: pointer-cursor styling, an explicit button role, or a generic
// clickable class pattern.
func (s *Scanner) globalScan() []schemas.ActionCandidate {
	var out []schemas.ActionCandidate
	for _, doc := range s.documents() {
		raw := doc.Find(func(el schemas.UIElement) bool {
			return looksClickable(el)
		})
		out = append(out, s.classify(raw)...)
	}
	return out
}

func looksClickable(el schemas.UIElement) bool {
	if strings.EqualFold(el.TagName(), "button") {
		return true
	}
	if role, ok := el.Attribute("role"); ok && role == "button" {
		return true
	}
	if el.Style().Cursor == "pointer" {
		return true
	}
	class := strings.ToLower(el.ClassName())
	for _, frag := range clickableClassFragments {
		if strings.Contains(class, frag) {
			return true
		}
	}
	return false
}

// -- Baseline (cursor) host-specific scan --

// anchorClassFragment marks the host's input box, the structural anchor the
// baseline scan walks backwards from.
const anchorClassFragment = "full-input-box"

func (s *Scanner) findAnchor() schemas.UIElement {
	anchors := s.tree.Find(func(el schemas.UIElement) bool {
		return strings.Contains(strings.ToLower(el.ClassName()), anchorClassFragment)
	})
	if len(anchors) == 0 {
		return nil
	}
	return anchors[0]
}

// anchorScan walks a bounded number of preceding siblings relative to the
// host anchor and classifies everything clickable inside them. A missing
// anchor yields zero candidates, not an error.
func (s *Scanner) anchorScan() []schemas.ActionCandidate {
	anchor := s.findAnchor()
	if anchor == nil {
		return nil
	}
	var out []schemas.ActionCandidate
	for _, sibling := range anchor.PrecedingSiblings(s.siblingWalkDepth) {
		out = append(out, s.classifySubtree(sibling)...)
	}
	return out
}

// conversationScan inspects the latest few conversation message blocks.
func (s *Scanner) conversationScan() []schemas.ActionCandidate {
	blocks := ConversationBlocks(s.tree)
	const latest = 3
	if len(blocks) > latest {
		blocks = blocks[len(blocks)-latest:]
	}
	var out []schemas.ActionCandidate
	for _, b := range blocks {
		out = append(out, s.classifySubtree(b)...)
	}
	return out
}

// modalScan inspects any visible modal or overlay container.
func (s *Scanner) modalScan() []schemas.ActionCandidate {
	containers := s.tree.Find(func(el schemas.UIElement) bool {
		class := strings.ToLower(el.ClassName())
		return strings.Contains(class, "modal") ||
			strings.Contains(class, "overlay") ||
			strings.Contains(class, "popup")
	})
	var out []schemas.ActionCandidate
	for _, c := range containers {
		if !classifier.IsVisible(c) {
			continue
		}
		out = append(out, s.classifySubtree(c)...)
	}
	return out
}

// -- Alternate (windsurf) host-specific scan --

// windsurfSelectorFragments are the variant's clickable-control class
// patterns, applied across the whole tree and the dedicated panel document.
var windsurfSelectorFragments = []string{
	"bg-ide-button", "cascade-action", "hover:bg-ide-button-hover",
}

func (s *Scanner) windsurfScan() []schemas.ActionCandidate {
	var out []schemas.ActionCandidate
	for _, doc := range s.documents() {
		raw := doc.Find(func(el schemas.UIElement) bool {
			class := strings.ToLower(el.ClassName())
			for _, frag := range windsurfSelectorFragments {
				if strings.Contains(class, strings.ToLower(frag)) {
					return true
				}
			}
			return false
		})
		out = append(out, s.classify(raw)...)
	}
	return out
}

// -- Special categories (all variants) --

// resumeLinkScan finds explicit resume-command links in every document.
func (s *Scanner) resumeLinkScan() []schemas.ActionCandidate {
	var out []schemas.ActionCandidate
	for _, doc := range s.documents() {
		raw := doc.Find(classifier.IsResumeLink)
		out = append(out, s.classify(raw)...)
	}
	return out
}

// connectionFailureScan finds buttons nested inside dropdown or overlay
// containers whose text mentions a connectivity failure.
func (s *Scanner) connectionFailureScan() []schemas.ActionCandidate {
	var out []schemas.ActionCandidate
	for _, doc := range s.documents() {
		containers := doc.Find(func(el schemas.UIElement) bool {
			class := strings.ToLower(el.ClassName())
			if !strings.Contains(class, "dropdown") && !strings.Contains(class, "overlay") {
				return false
			}
			text := strings.ToLower(el.Text())
			return strings.Contains(text, "connection failed") ||
				strings.Contains(text, "connectivity") ||
				strings.Contains(text, "network error")
		})
		for _, c := range containers {
			out = append(out, s.classifySubtree(c)...)
		}
	}
	return out
}

// -- Helpers --

// ConversationBlocks returns the host's conversation message containers in
// document order. Shared with the executor's metadata extraction.
func ConversationBlocks(tree schemas.UITree) []schemas.UIElement {
	return tree.Find(func(el schemas.UIElement) bool {
		class := strings.ToLower(el.ClassName())
		return strings.Contains(class, "composer-message") ||
			strings.Contains(class, "conversation-turn") ||
			strings.Contains(class, "chat-message")
	})
}

func (s *Scanner) classify(raw []schemas.UIElement) []schemas.ActionCandidate {
	var out []schemas.ActionCandidate
	for _, el := range raw {
		if cand, ok := s.classifier.Classify(el); ok {
			out = append(out, cand)
		}
	}
	return out
}

// classifySubtree classifies the container itself plus every clickable
// descendant.
func (s *Scanner) classifySubtree(root schemas.UIElement) []schemas.ActionCandidate {
	if root == nil {
		return nil
	}
	var out []schemas.ActionCandidate
	if cand, ok := s.classifier.Classify(root); ok {
		out = append(out, cand)
	}
	var walk func(el schemas.UIElement)
	walk = func(el schemas.UIElement) {
		for _, child := range el.Children() {
			if looksClickable(child) {
				if cand, ok := s.classifier.Classify(child); ok {
					out = append(out, cand)
				}
			}
			walk(child)
		}
	}
	walk(root)
	return out
}
