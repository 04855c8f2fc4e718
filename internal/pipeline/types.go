// Package pipeline wires search, ranking, scraping and optimization into one
// research run.
package pipeline

import (
	"context"
	"time"

	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/rank"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/search"
)

// Request is one research run.
type Request struct {
	Query string `json:"query"`
	// Required is the number of accepted sources wanted.
	Required int `json:"required"`
	// Multiplier overrides the candidates-per-result ratio. 0 walks the ladder.
	Multiplier int `json:"multiplier,omitempty"`
	// Budget caps the total characters of optimized content.
	Budget int `json:"budget"`
}

// Stage names a pipeline step.
type Stage string

const (
	StageSearch   Stage = "search"
	StageRank     Stage = "rank"
	StageScrape   Stage = "scrape"
	StageOptimize Stage = "optimize"
)

// Stages lists the steps in execution order.
var Stages = []Stage{StageSearch, StageRank, StageScrape, StageOptimize}

// Stats summarizes a run.
type Stats struct {
	Candidates  int                     `json:"candidates"`
	Accepted    int                     `json:"accepted"`
	Optimized   int                     `json:"optimized"`
	RankingPath rank.Path               `json:"ranking_path"`
	CharsUsed   int                     `json:"chars_used"`
	Durations   map[Stage]time.Duration `json:"durations"`
	Total       time.Duration           `json:"total"`
}

// Response is the result of a run.
type Response struct {
	Sources       []optimize.Source `json:"sources"`
	EnhancedQuery string            `json:"enhanced_query"`
	Stats         Stats             `json:"stats"`
}

// Event reports stage progress. Done is false when a stage starts.
type Event struct {
	Stage   Stage
	Done    bool
	Count   int
	Elapsed time.Duration
}

// Searcher finds candidate URLs.
type Searcher interface {
	Search(ctx context.Context, query string, required, multiplier int) []search.Result
	SearchWithLadder(ctx context.Context, query string, required int) []search.Result
}

// Ranker orders candidates and enhances the query.
type Ranker interface {
	RankAndEnhance(ctx context.Context, results []search.Result, query string) rank.Outcome
}

// Executor scrapes ranked candidates.
type Executor interface {
	Execute(ctx context.Context, candidates []rank.Candidate, required int) []scrape.Outcome
}

// Optimizer trims scraped content to a budget.
type Optimizer interface {
	Optimize(ctx context.Context, sources []scrape.Outcome, query, enhanced string, budget int) []optimize.Source
	Close() error
}
