// Package rank orders search candidates by relevance, assigns each a fetch
// strategy, and produces an enhanced query for semantic retrieval.
package rank

import (
	"context"

	"github.com/Aman-CERP/amanscout/internal/search"
)

// MaxRankingURLs caps how many candidates are sent to the model in one prompt.
const MaxRankingURLs = 100

// Candidate is a search result with a relevance score and a suggested strategy.
type Candidate struct {
	search.Result
	Score    float64  `json:"score"`
	Strategy Strategy `json:"strategy"`
	Reason   string   `json:"reason,omitempty"`
}

// Path records how an Outcome was produced.
type Path string

const (
	PathLLM       Path = "llm"
	PathHeuristic Path = "heuristic"
)

// Outcome is the result of RankAndEnhance.
type Outcome struct {
	Candidates    []Candidate
	EnhancedQuery string
	Path          Path
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available(ctx context.Context) bool
	ModelName() string
}
