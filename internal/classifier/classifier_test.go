package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/uitree/faketree"
)

func newTestClassifier(variant schemas.HostVariant) *Classifier {
	return New(variant, schemas.DefaultActionConfig(), zap.NewNop())
}

func TestMatchPhrase(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected schemas.ActionType
	}{
		{"accept all beats accept", "Accept All Changes", schemas.ActionAcceptAll},
		{"bare accept", "Accept", schemas.ActionAccept},
		{"keep all beats keep", "Keep All", schemas.ActionKeepAll},
		{"bare keep", "Keep file", schemas.ActionKeep},
		{"run command beats run", "Run Command", schemas.ActionRunCommand},
		{"bare run", "Run", schemas.ActionRun},
		{"review next file", "Review next file", schemas.ActionReviewNextFile},
		{"try again", "Try Again", schemas.ActionTryAgain},
		{"case insensitive", "aCCePT aLL", schemas.ActionAcceptAll},
		{"surrounding text", "Click to Accept the changes", schemas.ActionAccept},
		{"resume", "Resume the conversation", schemas.ActionResume},
		{"unrecognized", "Cancel", schemas.ActionUnknown},
		{"empty", "", schemas.ActionUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MatchPhrase(tc.text))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := newTestClassifier(schemas.VariantCursor)
	el := faketree.NewButton("Accept All")

	first, ok := c.Classify(el)
	require.True(t, ok)
	second, ok := c.Classify(el)
	require.True(t, ok)

	assert.Equal(t, first.Type, second.Type)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Element.Key(), second.Element.Key())
}

func TestClassifyVisibilityGates(t *testing.T) {
	c := newTestClassifier(schemas.VariantCursor)

	t.Run("zero size rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").WithBox(schemas.Rect{})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("display none rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").
			WithStyle(schemas.ComputedStyle{Display: "none", Opacity: 1})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("near-zero opacity rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").
			WithStyle(schemas.ComputedStyle{Display: "block", Opacity: 0.01})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("pointer-events none rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").
			WithStyle(schemas.ComputedStyle{Display: "block", Opacity: 1, PointerEvents: "none"})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("disabled attribute rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").WithAttr("disabled", "")
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("default button accepted", func(t *testing.T) {
		el := faketree.NewButton("Accept")
		cand, ok := c.Classify(el)
		require.True(t, ok)
		assert.True(t, cand.Visible)
		assert.True(t, cand.Interactive)
	})
}

func TestClassifyEnabledFilter(t *testing.T) {
	cfg := schemas.DefaultActionConfig()
	cfg[schemas.ActionRun] = false
	c := New(schemas.VariantCursor, cfg, zap.NewNop())

	_, ok := c.Classify(faketree.NewButton("Run"))
	assert.False(t, ok, "disabled type must be skipped")

	_, ok = c.Classify(faketree.NewButton("Accept"))
	assert.True(t, ok)

	// Re-enabling at runtime takes effect immediately.
	cfg[schemas.ActionRun] = true
	c.SetEnabled(cfg)
	_, ok = c.Classify(faketree.NewButton("Run"))
	assert.True(t, ok)
}

func TestEnabledDefaultsToTrueForUnknownTypes(t *testing.T) {
	c := New(schemas.VariantCursor, map[schemas.ActionType]bool{}, zap.NewNop())
	assert.True(t, c.Enabled(schemas.ActionAccept))
	assert.True(t, c.Enabled(schemas.ActionType("never-configured")))
}

func TestIsResumeLink(t *testing.T) {
	t.Run("command attribute", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:composer.resume?arg=1")
		assert.True(t, IsResumeLink(el))
	})

	t.Run("link marker with resume text", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:other").
			WithText("Resume the conversation")
		assert.True(t, IsResumeLink(el))
	})

	t.Run("resume text without link marker", func(t *testing.T) {
		el := faketree.NewElement("a").WithText("Resume the conversation")
		assert.False(t, IsResumeLink(el))
	})

	t.Run("link marker without resume", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:other").
			WithText("Open settings")
		assert.False(t, IsResumeLink(el))
	})
}

func TestClassifyResumeLinkBypassesPhraseTable(t *testing.T) {
	c := newTestClassifier(schemas.VariantCursor)
	el := faketree.NewElement("a").
		WithAttr("data-link", "command:composer.resume").
		WithText("Continue where you left off")

	cand, ok := c.Classify(el)
	require.True(t, ok)
	assert.Equal(t, schemas.ActionResume, cand.Type)
	assert.True(t, cand.ResumeLink)
}

func TestClassifyResumeLinkRequiresVisibility(t *testing.T) {
	c := newTestClassifier(schemas.VariantCursor)

	t.Run("hidden link rejected", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:composer.resume").
			WithText("Resume the conversation").
			WithStyle(schemas.ComputedStyle{Display: "none", Opacity: 1})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("faded link rejected", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:composer.resume").
			WithText("Resume the conversation").
			WithStyle(schemas.ComputedStyle{Display: "block", Opacity: 0.01})
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("disabled link rejected", func(t *testing.T) {
		el := faketree.NewElement("a").
			WithAttr("data-link", "command:composer.resume").
			WithText("Resume the conversation").
			WithAttr("aria-disabled", "true")
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})
}

func TestClassifyWindsurfVariantHints(t *testing.T) {
	c := newTestClassifier(schemas.VariantWindsurf)

	t.Run("hinted element accepted", func(t *testing.T) {
		el := faketree.NewButton("Accept").WithClass("bg-ide-button cascade-action")
		cand, ok := c.Classify(el)
		require.True(t, ok)
		assert.Equal(t, schemas.ActionAccept, cand.Type)
	})

	t.Run("unhinted element rejected", func(t *testing.T) {
		el := faketree.NewButton("Accept").WithClass("plain-button")
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})

	t.Run("reject control excluded", func(t *testing.T) {
		el := faketree.NewButton("Accept or Reject").WithClass("bg-ide-button")
		_, ok := c.Classify(el)
		assert.False(t, ok)
	})
}

func TestDedupeAndPrioritize(t *testing.T) {
	accept := faketree.NewButton("Accept")
	acceptAll := faketree.NewButton("Accept All")
	run := faketree.NewButton("Run")

	cands := []schemas.ActionCandidate{
		{Element: run, Type: schemas.ActionRun},
		{Element: accept, Type: schemas.ActionAccept},
		{Element: acceptAll, Type: schemas.ActionAcceptAll},
		// Same element rediscovered by a second strategy.
		{Element: accept, Type: schemas.ActionAccept},
	}

	got := DedupeAndPrioritize(cands)
	require.Len(t, got, 3, "duplicate element keys must collapse")
	assert.Equal(t, schemas.ActionAcceptAll, got[0].Type)
	assert.Equal(t, schemas.ActionAccept, got[1].Type)
	assert.Equal(t, schemas.ActionRun, got[2].Type)
}

func TestDedupeAndPrioritizeIsDeterministic(t *testing.T) {
	a := faketree.NewButton("Keep")
	b := faketree.NewButton("Keep All")
	c := faketree.NewButton("Try Again")

	cands := []schemas.ActionCandidate{
		{Element: a, Type: schemas.ActionKeep},
		{Element: b, Type: schemas.ActionKeepAll},
		{Element: c, Type: schemas.ActionTryAgain},
	}

	first := DedupeAndPrioritize(cands)
	for i := 0; i < 10; i++ {
		again := DedupeAndPrioritize(cands)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Element.Key(), again[j].Element.Key())
		}
	}
}

func TestDedupeKeepsUnrankedAfterRanked(t *testing.T) {
	unknown := faketree.NewButton("Connection resume helper")
	ranked := faketree.NewButton("Keep")

	got := DedupeAndPrioritize([]schemas.ActionCandidate{
		{Element: unknown, Type: schemas.ActionConnectionResume},
		{Element: ranked, Type: schemas.ActionKeep},
	})
	require.Len(t, got, 2)
	assert.Equal(t, schemas.ActionKeep, got[0].Type)
	assert.Equal(t, schemas.ActionConnectionResume, got[1].Type)
}
