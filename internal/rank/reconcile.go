package rank

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/amanscout/internal/search"
)

const (
	fallbackScore  = 10
	fallbackReason = "Fallback - not ranked by model"
	minEnhancedLen = 10
)

// reconcile merges model rankings back onto the full candidate list.
// Only ids below ranked are honored; the first occurrence of an id wins.
// Unranked candidates are appended in input order with a low score, and the
// result is stable-sorted by score so exactly one Candidate exists per input.
func reconcile(results []search.Result, ranked int, entries []rankingEntry) []Candidate {
	out := make([]Candidate, 0, len(results))
	used := make([]bool, len(results))

	for _, e := range entries {
		if e.ID < 0 || e.ID >= ranked || e.ID >= len(results) || used[e.ID] {
			continue
		}
		used[e.ID] = true
		out = append(out, Candidate{
			Result:   results[e.ID],
			Score:    clampScore(e.RelevanceScore),
			Strategy: e.strategy(),
			Reason:   e.Reason,
		})
	}

	for i, r := range results {
		if used[i] {
			continue
		}
		out = append(out, Candidate{
			Result:   r,
			Score:    fallbackScore,
			Strategy: StrategyStatic,
			Reason:   fallbackReason,
		})
	}

	sortByScore(out)
	return out
}

// acceptEnhanced reports whether the model's enhanced query is usable.
func acceptEnhanced(original, enhanced string) bool {
	e := strings.TrimSpace(enhanced)
	return len(e) >= minEnhancedLen && len(e) >= len(strings.TrimSpace(original))
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

func sortByScore(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
}
