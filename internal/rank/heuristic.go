package rank

import (
	"strings"

	"github.com/Aman-CERP/amanscout/internal/search"
)

const heuristicReason = "Heuristic - keyword match"

// Heuristic scores candidates by keyword overlap with the query and picks each
// strategy from the domain tables. Ties keep their input order.
func Heuristic(results []search.Result, query string) []Candidate {
	words := strings.Fields(strings.ToLower(query))

	out := make([]Candidate, len(results))
	for i, r := range results {
		title := strings.ToLower(r.Title)
		snippet := strings.ToLower(r.Snippet)

		var score float64
		for _, w := range words {
			if strings.Contains(title, w) {
				score += 10
			}
			if strings.Contains(snippet, w) {
				score += 5
			}
		}

		out[i] = Candidate{
			Result:   r,
			Score:    score,
			Strategy: StrategyForURL(r.URL),
			Reason:   heuristicReason,
		}
	}

	sortByScore(out)
	return out
}
