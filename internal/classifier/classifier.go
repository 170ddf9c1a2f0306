// File: internal/classifier/classifier.go
// Description: Filters raw scan candidates against the configured
// recognized-action table plus visibility and interactivity predicates, and
// tags each with its semantic action type.
package classifier

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// OpacityThreshold is the minimum rendered opacity below which an element is
// treated as invisible.
const OpacityThreshold = 0.05

// Classifier decides which raw elements qualify as actionable candidates.
type Classifier struct {
	variant schemas.HostVariant
	logger  *zap.Logger

	mu      sync.RWMutex
	enabled map[schemas.ActionType]bool
}

// New creates a classifier for the detected host variant with the given
// enabled-flag configuration.
func New(variant schemas.HostVariant, enabled map[schemas.ActionType]bool, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := make(map[schemas.ActionType]bool, len(enabled))
	for t, on := range enabled {
		cfg[t] = on
	}
	return &Classifier{
		variant: variant,
		logger:  logger.Named("classifier"),
		enabled: cfg,
	}
}

// SetEnabled replaces the enabled-flag configuration at runtime.
func (c *Classifier) SetEnabled(enabled map[schemas.ActionType]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = make(map[schemas.ActionType]bool, len(enabled))
	for t, on := range enabled {
		c.enabled[t] = on
	}
}

// Enabled reports whether the given action type is currently enabled. Types
// absent from the configuration default to enabled.
func (c *Classifier) Enabled(t schemas.ActionType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	on, ok := c.enabled[t]
	if !ok {
		return true
	}
	return on
}

// InferType returns the semantic action type of the element's visible text.
func (c *Classifier) InferType(el schemas.UIElement) schemas.ActionType {
	if IsResumeLink(el) {
		return schemas.ActionResume
	}
	return MatchPhrase(el.Text())
}

// IsActionableMatch reports whether an element qualifies as an actionable
// candidate: recognized phrase, enabled type, visible and interactive.
// Resume-link detection is a distinct predicate checked first.
func (c *Classifier) IsActionableMatch(el schemas.UIElement) bool {
	_, ok := c.Classify(el)
	return ok
}

// Classify runs the full predicate chain and, on success, returns the
// populated candidate.
func (c *Classifier) Classify(el schemas.UIElement) (schemas.ActionCandidate, bool) {
	if el == nil {
		return schemas.ActionCandidate{}, false
	}

	if IsResumeLink(el) {
		if !c.Enabled(schemas.ActionResume) {
			return schemas.ActionCandidate{}, false
		}
		// Resume links pass the same visibility and interactivity gates as
		// phrase matches; a faded-out link must not be invoked.
		if !IsVisible(el) || !IsInteractive(el) {
			return schemas.ActionCandidate{}, false
		}
		return schemas.ActionCandidate{
			Element:     el,
			Text:        strings.TrimSpace(el.Text()),
			Type:        schemas.ActionResume,
			Visible:     true,
			Interactive: true,
			ResumeLink:  true,
		}, true
	}

	text := strings.TrimSpace(el.Text())
	actionType := MatchPhrase(text)
	if actionType == schemas.ActionUnknown {
		return schemas.ActionCandidate{}, false
	}
	if !c.Enabled(actionType) {
		c.logger.Debug("Candidate skipped: action type disabled",
			zap.String("type", string(actionType)), zap.String("text", text))
		return schemas.ActionCandidate{}, false
	}

	// Variant-specific classification requires the variant's styling hints
	// and excludes anything that reads as a rejection control.
	if c.variant != schemas.VariantCursor {
		if !hasVariantClassHint(c.variant, el) {
			return schemas.ActionCandidate{}, false
		}
		if strings.Contains(strings.ToLower(text), "reject") {
			return schemas.ActionCandidate{}, false
		}
	}

	if !IsVisible(el) || !IsInteractive(el) {
		return schemas.ActionCandidate{}, false
	}

	return schemas.ActionCandidate{
		Element:     el,
		Text:        text,
		Type:        actionType,
		Visible:     true,
		Interactive: true,
	}, true
}

// IsResumeLink reports whether the element is an explicit resume command:
// either a command attribute naming the resume action, or resume text paired
// with the structural link marker.
func IsResumeLink(el schemas.UIElement) bool {
	link, ok := el.Attribute("data-link")
	if !ok {
		return false
	}
	if strings.Contains(strings.ToLower(link), "command:composer.resume") {
		return true
	}
	return strings.Contains(strings.ToLower(el.Text()), "resume")
}

// IsVisible reports whether the element has a non-zero rendered size, is not
// display:none or visibility:hidden, and has opacity above the threshold.
func IsVisible(el schemas.UIElement) bool {
	box := el.BoundingBox()
	if box.Width <= 0 || box.Height <= 0 {
		return false
	}
	style := el.Style()
	if style.Display == "none" || style.Visibility == "hidden" {
		return false
	}
	if style.Opacity < OpacityThreshold {
		return false
	}
	return true
}

// IsInteractive reports whether pointer events reach the element and it is
// not disabled.
func IsInteractive(el schemas.UIElement) bool {
	if el.Style().PointerEvents == "none" {
		return false
	}
	if v, ok := el.Attribute("disabled"); ok && v != "false" {
		return false
	}
	if v, ok := el.Attribute("aria-disabled"); ok && v == "true" {
		return false
	}
	return true
}
