// File: internal/executor/diffstat.go
package executor

import (
	"regexp"
	"strconv"
)

var (
	// The sign must start the text or follow whitespace/punctuation that a
	// rendered counter sits behind; a bare `-(\d+)` would also pick digits
	// out of hyphenated filenames like "utils-5.ts".
	addedPattern   = regexp.MustCompile(`(?:^|[\s(\[,])\+(\d+)\b`)
	deletedPattern = regexp.MustCompile(`(?:^|[\s(\[,])-(\d+)\b`)
	// filenamePattern matches a plain basename with an extension, the shape
	// code-change summaries render ("server.go", "pkg/router.ts").
	filenamePattern = regexp.MustCompile(`[\w./-]*[\w-]+\.[A-Za-z][A-Za-z0-9]{0,9}`)
)

// ParseChangeMarkers extracts `+N`/`-N` line counters from free-form status
// text.
//
// Edge cases: text without a sign contributes nothing; when the text carries
// multiple markers of the same sign, the maximum observed value wins rather
// than the first or the sum. The host renders the same counter redundantly
// across spans, so summing would double count.
func ParseChangeMarkers(text string) (added, deleted int) {
	for _, m := range addedPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > added {
			added = n
		}
	}
	for _, m := range deletedPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > deleted {
			deleted = n
		}
	}
	return added, deleted
}

// ParseFilename extracts the first filename-shaped token from summary text.
// Returns "" when nothing matches.
func ParseFilename(text string) string {
	return filenamePattern.FindString(text)
}
