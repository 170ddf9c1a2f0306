// File: internal/executor/metadata.go
package executor

import (
	"strings"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/scanner"
)

// summaryClassFragments mark the code-change summary element inside a
// conversation block.
var summaryClassFragments = []string{
	"diff-stats", "code-block-summary", "composer-code-block-status", "diffstat",
}

// ExtractChangeStats searches the most recent conversation blocks (bounded
// lookback) for a code-change summary and parses filename plus +N/-N
// markers. When the primary path yields nothing it falls back to a
// container-relative extraction anchored at the clicked element. An empty
// ChangeStats (no filename) means no metadata was recoverable; the
// invocation itself still proceeds.
func ExtractChangeStats(tree schemas.UITree, clicked schemas.UIElement, lookback int) schemas.ChangeStats {
	if lookback <= 0 {
		lookback = 5
	}
	if tree != nil {
		blocks := scanner.ConversationBlocks(tree)
		if len(blocks) > lookback {
			blocks = blocks[len(blocks)-lookback:]
		}
		// Newest block first: the summary belongs to the change the clicked
		// prompt refers to.
		for i := len(blocks) - 1; i >= 0; i-- {
			if stats, ok := statsFromContainer(blocks[i]); ok {
				return stats
			}
		}
	}
	if clicked != nil {
		return statsNearElement(clicked)
	}
	return schemas.ChangeStats{}
}

// statsFromContainer scans a container subtree for a summary element.
func statsFromContainer(root schemas.UIElement) (schemas.ChangeStats, bool) {
	summary := findSummaryElement(root)
	if summary == nil {
		return schemas.ChangeStats{}, false
	}
	text := summary.Text()
	name := ParseFilename(text)
	if name == "" {
		return schemas.ChangeStats{}, false
	}
	added, deleted := ParseChangeMarkers(text)
	return schemas.ChangeStats{
		Filename:     name,
		AddedLines:   added,
		DeletedLines: deleted,
	}, true
}

// statsNearElement walks up from the clicked element a few levels and scans
// each enclosing container. This is the fallback when the conversation-block
// path found nothing.
func statsNearElement(clicked schemas.UIElement) schemas.ChangeStats {
	const maxClimb = 5
	node := clicked.Parent()
	for i := 0; i < maxClimb && node != nil; i++ {
		if stats, ok := statsFromContainer(node); ok {
			return stats
		}
		node = node.Parent()
	}
	return schemas.ChangeStats{}
}

func findSummaryElement(root schemas.UIElement) schemas.UIElement {
	if root == nil {
		return nil
	}
	if isSummaryElement(root) {
		return root
	}
	var found schemas.UIElement
	var walk func(el schemas.UIElement)
	walk = func(el schemas.UIElement) {
		if found != nil {
			return
		}
		for _, child := range el.Children() {
			if isSummaryElement(child) {
				found = child
				return
			}
			walk(child)
		}
	}
	walk(root)
	return found
}

func isSummaryElement(el schemas.UIElement) bool {
	class := strings.ToLower(el.ClassName())
	for _, frag := range summaryClassFragments {
		if strings.Contains(class, frag) {
			return true
		}
	}
	return false
}
