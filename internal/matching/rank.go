// Package matching orders candidate matches for a donation.
package matching

import (
	"sort"

	"donorbridge/pkg/types"
)

// Less reports whether a takes precedence over b when both claim the same
// donation: lower priority rank first (unranked last), then higher score,
// then earlier creation. The id comparison only keeps the order total.
func Less(a, b *types.Match) bool {
	switch {
	case a.PriorityRank != nil && b.PriorityRank == nil:
		return true
	case a.PriorityRank == nil && b.PriorityRank != nil:
		return false
	case a.PriorityRank != nil && *a.PriorityRank != *b.PriorityRank:
		return *a.PriorityRank < *b.PriorityRank
	}

	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.ID < b.ID
}

// Rank sorts matches in place by precedence and returns them.
func Rank(matches []*types.Match) []*types.Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return Less(matches[i], matches[j])
	})
	return matches
}

// Next returns the highest-precedence match still in the given status, or nil.
func Next(matches []*types.Match, status types.MatchStatus) *types.Match {
	var best *types.Match
	for _, m := range matches {
		if m.Status != status {
			continue
		}
		if best == nil || Less(m, best) {
			best = m
		}
	}
	return best
}
