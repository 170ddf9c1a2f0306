// File: internal/classifier/rules.go
package classifier

import (
	"strings"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// Rule binds one recognized phrase to its semantic action type. The table is
// declarative so new host variants extend data, not branching logic.
type Rule struct {
	Phrase string
	Type   schemas.ActionType
}

// Rules is the fixed recognition table. Order matters: phrases are matched as
// case-insensitive substrings and the first hit wins, so compound phrases
// ("accept all") must precede their prefixes ("accept").
var Rules = []Rule{
	{Phrase: "accept all", Type: schemas.ActionAcceptAll},
	{Phrase: "keep all", Type: schemas.ActionKeepAll},
	{Phrase: "review next file", Type: schemas.ActionReviewNextFile},
	{Phrase: "run command", Type: schemas.ActionRunCommand},
	{Phrase: "try again", Type: schemas.ActionTryAgain},
	{Phrase: "accept", Type: schemas.ActionAccept},
	{Phrase: "keep", Type: schemas.ActionKeep},
	{Phrase: "run", Type: schemas.ActionRun},
	{Phrase: "apply", Type: schemas.ActionApply},
	{Phrase: "execute", Type: schemas.ActionExecute},
	{Phrase: "resume", Type: schemas.ActionResume},
}

// MatchPhrase classifies trimmed text against the rule table. Returns
// ActionUnknown when no phrase is contained in the text.
func MatchPhrase(text string) schemas.ActionType {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return schemas.ActionUnknown
	}
	for _, r := range Rules {
		if strings.Contains(lowered, r.Phrase) {
			return r.Type
		}
	}
	return schemas.ActionUnknown
}

// variantClassHints are the styling-class fragments variant-specific
// classification requires. The baseline variant takes no extra hint.
var variantClassHints = map[schemas.HostVariant][]string{
	schemas.VariantWindsurf: {"cascade", "codeium", "windsurf", "bg-ide-button"},
}

// hasVariantClassHint reports whether the element carries one of the
// variant's styling-class fragments. Variants with no registered hints
// always pass.
func hasVariantClassHint(variant schemas.HostVariant, el schemas.UIElement) bool {
	hints, ok := variantClassHints[variant]
	if !ok {
		return true
	}
	class := strings.ToLower(el.ClassName())
	for _, h := range hints {
		if strings.Contains(class, h) {
			return true
		}
	}
	return false
}
