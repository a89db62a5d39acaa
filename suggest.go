package blaze

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// DefaultSuggestionCount bounds how many "did you mean" candidates Suggest
// returns when the caller doesn't ask for a specific limit.
const DefaultSuggestionCount = 5

type suggestion struct {
	token    string
	distance int
}

// Suggest returns up to limit vocabulary tokens closest to query by
// Levenshtein distance, nearest first. This is a convenience surface for
// callers building a "did you mean" prompt; it does not affect search
// results and is independent of TokenIndex.FuzzySearch's bounded DFS.
func (m *IndexManager) Suggest(query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionCount
	}

	m.mu.Lock()
	vocabulary := make([]string, 0, len(m.tokens.postmap.entries))
	for token := range m.tokens.postmap.entries {
		vocabulary = append(vocabulary, token)
	}
	m.mu.Unlock()

	candidates := make([]suggestion, 0, len(vocabulary))
	for _, token := range vocabulary {
		if token == query {
			continue
		}
		candidates = append(candidates, suggestion{token: token, distance: levenshtein.ComputeDistance(query, token)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].token < candidates[j].token
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.token
	}
	return out
}
