// File: internal/classifier/prioritize.go
package classifier

import (
	"sort"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// actionRank maps each ranked action type to its position in the fixed
// priority table. Lower is more urgent.
var actionRank = func() map[schemas.ActionType]int {
	ranks := make(map[schemas.ActionType]int, len(schemas.RankedActionTypes))
	for i, t := range schemas.RankedActionTypes {
		ranks[t] = i
	}
	return ranks
}()

// DedupeAndPrioritize removes duplicate element references (first occurrence
// wins) and orders the remainder by the fixed priority table. Candidates
// whose type has no rank keep their relative scan order after all ranked
// entries. Pure: the input slice is not modified.
func DedupeAndPrioritize(candidates []schemas.ActionCandidate) []schemas.ActionCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]schemas.ActionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Element == nil {
			continue
		}
		key := c.Element.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, iRanked := actionRank[out[i].Type]
		rj, jRanked := actionRank[out[j].Type]
		switch {
		case iRanked && jRanked:
			return ri < rj
		case iRanked:
			return true
		default:
			// Unranked never precedes ranked; two unranked keep scan order.
			return false
		}
	})
	return out
}
