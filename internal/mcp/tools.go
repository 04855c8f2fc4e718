package mcp

import (
	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// Limits applied to tool arguments.
const (
	MaxCount  = 20
	MaxBudget = 200000
)

// ResearchInput defines the input schema for the research tool.
type ResearchInput struct {
	Query  string `json:"query" jsonschema:"the research question or topic"`
	Count  int    `json:"count,omitempty" jsonschema:"number of sources wanted, default from config (max 20)"`
	Budget int    `json:"budget,omitempty" jsonschema:"total character budget for the returned content, minimum 100"`
}

// ResearchOutput defines the output schema for the research tool.
type ResearchOutput struct {
	Query         string            `json:"query" jsonschema:"the query as received"`
	EnhancedQuery string            `json:"enhanced_query" jsonschema:"the query used for relevance filtering"`
	Sources       []optimize.Source `json:"sources" jsonschema:"optimized sources, most relevant first"`
	Stats         StatsOutput       `json:"stats" jsonschema:"run statistics"`
}

// StatsOutput summarizes a research run for tool clients.
type StatsOutput struct {
	Candidates  int              `json:"candidates"`
	Accepted    int              `json:"accepted"`
	Optimized   int              `json:"optimized"`
	CharsUsed   int              `json:"chars_used"`
	RankingPath string           `json:"ranking_path"`
	DurationsMS map[string]int64 `json:"durations_ms"`
	TotalMS     int64            `json:"total_ms"`
}

// HistoryInput defines the input schema for the history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of recent runs, default 20 (max 100)"`
}

// HistoryOutput defines the output schema for the history tool.
type HistoryOutput struct {
	Runs []RunOutput `json:"runs"`
}

// RunOutput is one recorded research run.
type RunOutput struct {
	ID            string `json:"id"`
	Query         string `json:"query"`
	EnhancedQuery string `json:"enhanced_query,omitempty"`
	Required      int    `json:"required"`
	Accepted      int    `json:"accepted"`
	Optimized     int    `json:"optimized"`
	CharsUsed     int    `json:"chars_used"`
	RankingPath   string `json:"ranking_path,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
	CreatedAt     string `json:"created_at"`
}

func toResearchOutput(query string, resp pipeline.Response) ResearchOutput {
	sources := resp.Sources
	if sources == nil {
		sources = []optimize.Source{}
	}
	durations := make(map[string]int64, len(resp.Stats.Durations))
	for stage, d := range resp.Stats.Durations {
		durations[string(stage)] = d.Milliseconds()
	}
	return ResearchOutput{
		Query:         query,
		EnhancedQuery: resp.EnhancedQuery,
		Sources:       sources,
		Stats: StatsOutput{
			Candidates:  resp.Stats.Candidates,
			Accepted:    resp.Stats.Accepted,
			Optimized:   resp.Stats.Optimized,
			CharsUsed:   resp.Stats.CharsUsed,
			RankingPath: string(resp.Stats.RankingPath),
			DurationsMS: durations,
			TotalMS:     resp.Stats.Total.Milliseconds(),
		},
	}
}
