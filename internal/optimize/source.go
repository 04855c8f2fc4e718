package optimize

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/amanscout/internal/chunk"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/store"
)

// MinAllocation is the smallest content slice worth emitting for a source.
const MinAllocation = 100

// Source is one optimized source handed back to the caller.
type Source struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	QualityScore    int     `json:"quality_score"`
	WordCount       int     `json:"word_count"`
	RelevanceScore  float64 `json:"relevance_score"`
	ChunkCount      int     `json:"chunk_count"`
	BudgetCharsUsed int     `json:"budget_chars_used"`
	StrategyChain   string  `json:"strategy_chain"`
}

// Passthrough converts scraped outcomes to Sources without touching content.
// Nothing is charged against the budget.
func Passthrough(outcomes []scrape.Outcome) []Source {
	out := make([]Source, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, Source{
			URL:            o.URL,
			Title:          o.Title,
			Content:        o.Content,
			QualityScore:   o.QualityScore,
			WordCount:      o.WordCount,
			RelevanceScore: o.Relevance,
			StrategyChain:  o.StrategyUsed.String(),
		})
	}
	return out
}

type group struct {
	index  int
	chunks []chunk.Chunk
	mean   float64
}

func groupHits(hits []store.Hit[chunk.Chunk]) []group {
	byIndex := make(map[int]*group)
	sums := make(map[int]float64)
	for _, h := range hits {
		idx := h.Payload.SourceIndex
		g, ok := byIndex[idx]
		if !ok {
			g = &group{index: idx}
			byIndex[idx] = g
		}
		g.chunks = append(g.chunks, h.Payload)
		sums[idx] += h.Score
	}

	groups := make([]group, 0, len(byIndex))
	for idx, g := range byIndex {
		g.mean = sums[idx] / float64(len(g.chunks))
		sort.Slice(g.chunks, func(i, j int) bool { return g.chunks[i].Seq < g.chunks[j].Seq })
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].mean != groups[j].mean {
			return groups[i].mean > groups[j].mean
		}
		return groups[i].index < groups[j].index
	})
	return groups
}

// reconstruct rebuilds per-source content from the retrieved chunks, sharing
// the budget evenly among the groups not yet emitted.
func reconstruct(hits []store.Hit[chunk.Chunk], originals []scrape.Outcome, budget int) []Source {
	groups := groupHits(hits)
	out := make([]Source, 0, len(groups))
	used := 0

	for _, g := range groups {
		if used >= budget {
			break
		}
		if g.index < 0 || g.index >= len(originals) {
			continue
		}

		texts := make([]string, len(g.chunks))
		for i, c := range g.chunks {
			texts[i] = c.Text
		}
		combined := strings.Join(texts, "\n\n")

		share := (budget - used) / max(len(groups)-len(out), 1)
		alloc := min(utf8.RuneCountInString(combined), share)
		if alloc < MinAllocation {
			break
		}

		content := truncateRunes(combined, alloc)
		used += alloc

		orig := originals[g.index]
		out = append(out, Source{
			URL:             orig.URL,
			Title:           orig.Title,
			Content:         content,
			QualityScore:    int(g.mean * 100),
			WordCount:       len(strings.Fields(content)),
			RelevanceScore:  g.mean,
			ChunkCount:      len(g.chunks),
			BudgetCharsUsed: alloc,
			StrategyChain:   orig.StrategyUsed.String() + "-vector-optimized",
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
