package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/uitree/faketree"
)

func TestDetectBaselineByClassTokens(t *testing.T) {
	tree := faketree.NewTree(
		faketree.NewElement("div").WithClass("composer-root").Append(
			faketree.NewElement("div").WithClass("full-input-box"),
			faketree.NewElement("span").WithClass("aislash-editor"),
		),
	).WithAddress("vscode-file://workbench/index.html")

	assert.Equal(t, schemas.VariantCursor, Detect(tree, zap.NewNop()))
}

func TestDetectWindsurfByClassTokens(t *testing.T) {
	tree := faketree.NewTree(
		faketree.NewElement("div").WithClass("cascade-panel").Append(
			faketree.NewElement("div").WithClass("bg-ide-editor"),
			faketree.NewElement("button").WithClass("codeium-action"),
		),
	).WithAddress("vscode-file://workbench/index.html")

	assert.Equal(t, schemas.VariantWindsurf, Detect(tree, zap.NewNop()))
}

func TestDetectLocationBonusBreaksClassTie(t *testing.T) {
	// One class token each; the windsurf name in the title adds the bonus.
	tree := faketree.NewTree(
		faketree.NewElement("div").Append(
			faketree.NewElement("div").WithClass("composer"),
			faketree.NewElement("div").WithClass("cascade"),
		),
	).WithTitle("Windsurf - main.go")

	assert.Equal(t, schemas.VariantWindsurf, Detect(tree, zap.NewNop()))
}

func TestDetectTieKeepsBaseline(t *testing.T) {
	tree := faketree.NewTree(
		faketree.NewElement("div").Append(
			faketree.NewElement("div").WithClass("composer"),
			faketree.NewElement("div").WithClass("cascade"),
		),
	)

	assert.Equal(t, schemas.VariantCursor, Detect(tree, zap.NewNop()))
}

func TestDetectEmptyTreeDefaultsToBaseline(t *testing.T) {
	tree := faketree.NewTree(faketree.NewElement("div"))
	assert.Equal(t, schemas.VariantCursor, Detect(tree, zap.NewNop()))
}

func TestDetectNilTreeDefaultsToBaseline(t *testing.T) {
	assert.Equal(t, schemas.VariantCursor, Detect(nil, zap.NewNop()))
}
