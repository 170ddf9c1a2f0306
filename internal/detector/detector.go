// File: internal/detector/detector.go
// Description: Scores the surrounding UI tree against known host variant
// fingerprints to select a scanning strategy. Runs once at engine
// construction; any failure falls back to the baseline variant.
package detector

import (
	"strings"

	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// Fingerprint is the recognition material for one host variant: class-name
// like tokens expected somewhere in the visible tree, plus substrings
// expected in the document address or title.
type Fingerprint struct {
	Variant        schemas.HostVariant
	ClassTokens    []string
	LocationTokens []string
}

// fingerprints is the fixed variant table. Adding a host variant means
// adding an entry here, not new branching logic.
var fingerprints = []Fingerprint{
	{
		Variant:        schemas.VariantCursor,
		ClassTokens:    []string{"composer", "anysphere", "full-input-box", "aislash"},
		LocationTokens: []string{"cursor", "anysphere"},
	},
	{
		Variant:        schemas.VariantWindsurf,
		ClassTokens:    []string{"cascade", "codeium", "windsurf", "bg-ide-editor"},
		LocationTokens: []string{"windsurf", "codeium", "cascade"},
	},
}

// Detect scores every known fingerprint against the tree and returns the
// winning variant. One point per fingerprint token found anywhere in the
// visible tree or the address/title, plus a weight-2 bonus when the address
// or title literally contains the variant's name. Ties and all-zero scores
// default to the baseline variant. Never fatal: panics from the tree adapter
// are swallowed and the baseline wins.
func Detect(tree schemas.UITree, logger *zap.Logger) (variant schemas.HostVariant) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("detector")
	variant = schemas.VariantCursor

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Variant detection failed; defaulting to baseline",
				zap.Any("panic", r))
			variant = schemas.VariantCursor
		}
	}()

	if tree == nil {
		return variant
	}

	location := strings.ToLower(tree.Address() + " " + tree.Title())
	best := 0
	for _, fp := range fingerprints {
		score := scoreFingerprint(tree, fp, location)
		logger.Debug("Variant fingerprint scored",
			zap.String("variant", string(fp.Variant)), zap.Int("score", score))
		// Strictly greater: ties keep the earlier (baseline-first) entry.
		if score > best {
			best = score
			variant = fp.Variant
		}
	}
	return variant
}

func scoreFingerprint(tree schemas.UITree, fp Fingerprint, location string) int {
	score := 0
	for _, token := range fp.ClassTokens {
		if treeContainsClassToken(tree, token) {
			score++
		}
	}
	for _, token := range fp.LocationTokens {
		if strings.Contains(location, strings.ToLower(token)) {
			score++
		}
	}
	if strings.Contains(location, strings.ToLower(string(fp.Variant))) {
		score += 2
	}
	return score
}

func treeContainsClassToken(tree schemas.UITree, token string) bool {
	token = strings.ToLower(token)
	matches := tree.Find(func(el schemas.UIElement) bool {
		return strings.Contains(strings.ToLower(el.ClassName()), token)
	})
	return len(matches) > 0
}
