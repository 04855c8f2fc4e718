package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

// Searcher fans a query out to one or more providers, then filters and deduplicates.
type Searcher struct {
	providers  []Provider
	attempts   int
	retryDelay time.Duration
	multiplier int
	ladder     []int
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithRetry sets the total number of attempts per provider and the fixed delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Searcher) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.retryDelay = delay
	}
}

// WithMultiplier sets the default candidates-per-result multiplier.
func WithMultiplier(m int) Option {
	return func(s *Searcher) {
		if m > 0 {
			s.multiplier = m
		}
	}
}

// WithLadder sets the multipliers tried by SearchWithLadder.
func WithLadder(ladder []int) Option {
	return func(s *Searcher) {
		if len(ladder) > 0 {
			s.ladder = append([]int(nil), ladder...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher over the given providers. Results are merged in provider order.
func NewSearcher(providers []Provider, opts ...Option) *Searcher {
	s := &Searcher{
		providers:  providers,
		attempts:   3,
		retryDelay: time.Second,
		multiplier: 4,
		ladder:     []int{4, 5, 10},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search requests required*multiplier candidates and returns them filtered and deduplicated.
// A multiplier <= 0 uses the configured default. Provider failures are retried and then
// swallowed: the result is empty, never an error.
func (s *Searcher) Search(ctx context.Context, query string, required, multiplier int) []Result {
	if multiplier <= 0 {
		multiplier = s.multiplier
	}
	if required <= 0 || query == "" {
		return []Result{}
	}

	limit := required * multiplier
	seen := make(map[string]struct{}, limit)
	out := s.collect(ctx, query, limit, seen)
	if len(out) > limit {
		out = out[:limit]
	}

	s.logger.Debug("search complete",
		slog.String("query", query),
		slog.Int("requested", limit),
		slog.Int("returned", len(out)))
	return out
}

// SearchWithLadder walks the multiplier ladder until the pool holds at least 2*required
// candidates or the ladder is exhausted. Later passes only add URLs not seen before.
func (s *Searcher) SearchWithLadder(ctx context.Context, query string, required int) []Result {
	if required <= 0 || query == "" {
		return []Result{}
	}

	var pool []Result
	seen := make(map[string]struct{})
	limit := 0
	for _, m := range s.ladder {
		if ctx.Err() != nil {
			break
		}
		limit = required * m
		pool = append(pool, s.collect(ctx, query, limit, seen)...)
		if len(pool) >= 2*required {
			break
		}
		s.logger.Debug("search pool short, widening",
			slog.Int("multiplier", m),
			slog.Int("pool", len(pool)))
	}

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}

// collect queries all providers concurrently and merges their filtered results in provider order.
func (s *Searcher) collect(ctx context.Context, query string, limit int, seen map[string]struct{}) []Result {
	raw := make([][]Result, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			raw[i] = s.queryProvider(gctx, p, query, limit)
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for i, results := range raw {
		out = append(out, filterDedup(results, seen, s.providers[i].Name())...)
	}
	return out
}

// queryProvider calls one provider with fixed-delay retries. Exhaustion yields nil.
func (s *Searcher) queryProvider(ctx context.Context, p Provider, query string, limit int) []Result {
	cfg := scerrors.FixedRetryConfig(s.attempts, s.retryDelay)
	cfg.OnRetry = func(attempt int, err error) {
		s.logger.Debug("search attempt failed",
			slog.String("provider", p.Name()),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}

	results, err := scerrors.RetryWithResult(ctx, cfg, func() ([]Result, error) {
		return p.Search(ctx, query, limit)
	})
	if err != nil {
		s.logger.Warn("search provider failed",
			slog.String("provider", p.Name()),
			slog.String("error", scerrors.Wrap(scerrors.ErrCodeSearchFailed, err).Error()))
		return nil
	}
	return results
}
