// Package scrape fetches page content with several strategies and races them
// per URL, keeping the first result that passes the quality gate.
package scrape

import (
	"context"
	"sync/atomic"

	"github.com/Aman-CERP/amanscout/internal/quality"
	"github.com/Aman-CERP/amanscout/internal/rank"
)

// Page is the raw result of one fetch attempt.
type Page struct {
	Success bool
	Title   string
	Content string
	Err     error
}

// Fetcher retrieves a page with one strategy. Fetch must return promptly once
// ctx is done.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Page
	Strategy() rank.Strategy
}

// Outcome is an accepted page for one candidate URL.
type Outcome struct {
	Success      bool          `json:"success"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	StrategyUsed rank.Strategy `json:"strategy_used"`
	QualityScore int           `json:"quality_score"`
	QualityTier  quality.Tier  `json:"quality_tier"`
	WordCount    int           `json:"word_count"`
	Relevance    float64       `json:"relevance"`
	Err          error         `json:"-"`
}

func failed(err error) Page {
	return Page{Err: err}
}

// DefaultUserAgents are rotated across requests by the HTTP-based fetchers.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

type agentRotator struct {
	agents []string
	next   atomic.Uint32
}

func newAgentRotator(agents []string) *agentRotator {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	return &agentRotator{agents: agents}
}

func (r *agentRotator) pick() string {
	i := r.next.Add(1) - 1
	return r.agents[int(i)%len(r.agents)]
}
