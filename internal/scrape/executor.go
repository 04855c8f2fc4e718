package scrape

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/amanscout/internal/quality"
	"github.com/Aman-CERP/amanscout/internal/rank"
)

const (
	defaultStrategyTimeout = 15 * time.Second
	defaultMaxBatch        = 8
)

// Observer receives per-URL results. Outcome is "accepted", "rejected" or "skipped".
type Observer interface {
	URLDone(url, outcome string, strategy rank.Strategy)
}

// Executor scrapes candidates in batches, racing strategies per URL.
type Executor struct {
	fetchers        map[rank.Strategy]Fetcher
	strategyTimeout time.Duration
	maxBatch        int
	observer        Observer
	logger          *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStrategyTimeout bounds each strategy attempt.
func WithStrategyTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.strategyTimeout = d
		}
	}
}

// WithMaxBatch caps how many URLs are scraped concurrently.
func WithMaxBatch(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxBatch = n
		}
	}
}

// WithObserver registers an observer for per-URL results.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor over the given fetchers, keyed by their strategy.
func NewExecutor(fetchers []Fetcher, opts ...ExecutorOption) *Executor {
	e := &Executor{
		fetchers:        make(map[rank.Strategy]Fetcher, len(fetchers)),
		strategyTimeout: defaultStrategyTimeout,
		maxBatch:        defaultMaxBatch,
		logger:          slog.Default(),
	}
	for _, f := range fetchers {
		if f != nil {
			e.fetchers[f.Strategy()] = f
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute scrapes candidates in rank order until required outcomes pass the
// quality gate or candidates run out. The result is sorted by quality score,
// highest first, and holds at most required entries. Failures are logged, never returned.
func (e *Executor) Execute(ctx context.Context, candidates []rank.Candidate, required int) []Outcome {
	var accepted []Outcome
	next := 0

	for next < len(candidates) && len(accepted) < required && ctx.Err() == nil {
		remaining := required - len(accepted)
		size := min(e.maxBatch, 2*remaining, len(candidates)-next)
		batch := candidates[next : next+size]
		next += size

		got := e.runBatch(ctx, batch, remaining)
		e.logger.Debug("scrape batch done",
			slog.Int("batch", size),
			slog.Int("accepted", len(got)),
			slog.Int("remaining", remaining-len(got)))
		accepted = append(accepted, got...)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].QualityScore > accepted[j].QualityScore
	})
	if len(accepted) > required {
		accepted = accepted[:required]
	}
	return accepted
}

// runBatch scrapes a batch concurrently and stops early once need outcomes are in.
func (e *Executor) runBatch(ctx context.Context, batch []rank.Candidate, need int) []Outcome {
	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Outcome, len(batch))
	var wg sync.WaitGroup
	for _, c := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o, ok := e.scrapeURL(bctx, c); ok {
				results <- o
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var out []Outcome
	for o := range results {
		if len(out) >= need {
			continue
		}
		out = append(out, o)
		if len(out) >= need {
			cancel()
		}
	}
	return out
}

// plan returns the strategies to race for a suggestion, in preference order.
func (e *Executor) plan(suggested rank.Strategy) []Fetcher {
	order := []rank.Strategy{suggested, rank.StrategyDynamic}
	if suggested == rank.StrategyDynamic {
		order = order[:1]
	}
	var out []Fetcher
	for _, s := range order {
		if f, ok := e.fetchers[s]; ok {
			out = append(out, f)
		}
	}
	return out
}

type attempt struct {
	strategy rank.Strategy
	page     Page
}

// scrapeURL races the planned strategies and returns the first acceptable page.
// Losers are cancelled and awaited before returning.
func (e *Executor) scrapeURL(ctx context.Context, c rank.Candidate) (Outcome, bool) {
	fetchers := e.plan(c.Strategy)
	if len(fetchers) == 0 {
		e.logger.Debug("no strategy available", slog.String("url", c.URL), slog.String("suggested", c.Strategy.String()))
		e.observe(c.URL, "skipped", c.Strategy)
		return Outcome{}, false
	}

	uctx, cancel := context.WithCancel(ctx)
	defer cancel()

	attempts := make(chan attempt, len(fetchers))
	var wg sync.WaitGroup
	for _, f := range fetchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, scancel := context.WithTimeout(uctx, e.strategyTimeout)
			defer scancel()
			attempts <- attempt{strategy: f.Strategy(), page: f.Fetch(sctx, c.URL)}
		}()
	}
	defer wg.Wait()

	for range fetchers {
		a := <-attempts
		if !a.page.Success {
			e.logger.Debug("strategy failed",
				slog.String("url", c.URL),
				slog.String("strategy", a.strategy.String()),
				slog.Any("error", a.page.Err))
			continue
		}

		q := quality.Assess(a.page.Content, c.URL, a.page.Title)
		if !q.Tier.Acceptable() {
			e.logger.Debug("content below quality gate",
				slog.String("url", c.URL),
				slog.String("strategy", a.strategy.String()),
				slog.Int("score", q.Score),
				slog.String("tier", q.Tier.String()))
			continue
		}

		cancel()
		e.observe(c.URL, "accepted", a.strategy)
		return Outcome{
			Success:      true,
			URL:          c.URL,
			Title:        firstNonEmpty(a.page.Title, c.Title),
			Content:      a.page.Content,
			StrategyUsed: a.strategy,
			QualityScore: q.Score,
			QualityTier:  q.Tier,
			WordCount:    q.WordCount,
			Relevance:    c.Score,
		}, true
	}

	e.observe(c.URL, "rejected", c.Strategy)
	return Outcome{}, false
}

func (e *Executor) observe(url, outcome string, s rank.Strategy) {
	if e.observer != nil {
		e.observer.URLDone(url, outcome, s)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
