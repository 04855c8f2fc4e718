package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/rank"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/search"
)

// MinBudget is the smallest accepted character budget.
const MinBudget = optimize.MinAllocation

// Validate checks a request. Violations carry ErrCodeInvalidRequest.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Query) == "":
		return scerrors.New(scerrors.ErrCodeInvalidRequest, "query must not be empty", nil)
	case r.Required < 1:
		return scerrors.Newf(scerrors.ErrCodeInvalidRequest, "required must be at least 1, got %d", r.Required)
	case r.Budget < MinBudget:
		return scerrors.Newf(scerrors.ErrCodeInvalidRequest, "budget must be at least %d, got %d", MinBudget, r.Budget)
	case r.Multiplier < 0:
		return scerrors.Newf(scerrors.ErrCodeInvalidRequest, "multiplier must not be negative, got %d", r.Multiplier)
	}
	return nil
}

// Run searches, ranks, scrapes and optimizes. The only errors returned are
// request validation failures and context cancellation; every stage failure
// degrades to a fallback instead.
func (c *Context) Run(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	start := time.Now()
	stats := Stats{Durations: make(map[Stage]time.Duration, len(Stages))}
	query := strings.TrimSpace(req.Query)

	var results []search.Result
	c.stage(StageSearch, &stats, func() int {
		if req.Multiplier > 0 {
			results = c.searcher.Search(ctx, query, req.Required, req.Multiplier)
		} else {
			results = c.searcher.SearchWithLadder(ctx, query, req.Required)
		}
		return len(results)
	})
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	stats.Candidates = len(results)

	if len(results) == 0 {
		c.logger.Info("no search results", slog.String("query", query))
		resp := Response{Sources: []optimize.Source{}, EnhancedQuery: query, Stats: stats}
		c.finish(ctx, req, &resp, start)
		return resp, nil
	}

	var outcome rank.Outcome
	c.stage(StageRank, &stats, func() int {
		outcome = c.ranker.RankAndEnhance(ctx, results, query)
		return len(outcome.Candidates)
	})
	stats.RankingPath = outcome.Path
	c.metrics.RankingDone(outcome.Path)
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	enhanced := outcome.EnhancedQuery
	if enhanced == "" {
		enhanced = query
	}

	var scraped []scrape.Outcome
	c.stage(StageScrape, &stats, func() int {
		scraped = c.executor.Execute(ctx, outcome.Candidates, req.Required)
		return len(scraped)
	})
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	stats.Accepted = len(scraped)

	var sources []optimize.Source
	c.stage(StageOptimize, &stats, func() int {
		sources = c.optimizer.Optimize(ctx, scraped, query, enhanced, req.Budget)
		return len(sources)
	})
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	stats.Optimized = len(sources)
	for _, s := range sources {
		stats.CharsUsed += s.BudgetCharsUsed
	}

	resp := Response{Sources: sources, EnhancedQuery: enhanced, Stats: stats}
	c.finish(ctx, req, &resp, start)
	return resp, nil
}

// stage times fn, reports it to the progress callback and metrics, and stores the duration.
func (c *Context) stage(s Stage, stats *Stats, fn func() int) {
	c.emit(Event{Stage: s})
	began := time.Now()
	n := fn()
	elapsed := time.Since(began)

	stats.Durations[s] = elapsed
	c.metrics.ObserveStage(string(s), elapsed)
	c.emit(Event{Stage: s, Done: true, Count: n, Elapsed: elapsed})
	c.logger.Debug("stage done",
		slog.String("stage", string(s)),
		slog.Int("count", n),
		slog.Duration("took", elapsed))
}

func (c *Context) emit(e Event) {
	if c.progress != nil {
		c.progress(e)
	}
}

// finish stamps the total duration and records the run. Recording failures are logged.
func (c *Context) finish(ctx context.Context, req Request, resp *Response, start time.Time) {
	resp.Stats.Total = time.Since(start)
	c.logger.Info("research run complete",
		slog.String("query", req.Query),
		slog.Int("candidates", resp.Stats.Candidates),
		slog.Int("accepted", resp.Stats.Accepted),
		slog.Int("optimized", resp.Stats.Optimized),
		slog.String("ranking_path", string(resp.Stats.RankingPath)),
		slog.Duration("took", resp.Stats.Total))

	if c.recorder == nil {
		return
	}
	_, err := c.recorder.Record(context.WithoutCancel(ctx), history.Run{
		Query:         req.Query,
		EnhancedQuery: resp.EnhancedQuery,
		Required:      req.Required,
		Accepted:      resp.Stats.Accepted,
		Optimized:     resp.Stats.Optimized,
		CharsUsed:     resp.Stats.CharsUsed,
		RankingPath:   string(resp.Stats.RankingPath),
		DurationMS:    resp.Stats.Total.Milliseconds(),
	})
	if err != nil {
		c.logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
}
