package rank

import (
	"context"
	"errors"
	"log/slog"
	"time"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/search"
)

// Ranker ranks candidates with a Generator and falls back to the keyword
// heuristic and template enhancer whenever the model cannot be used.
type Ranker struct {
	gen      Generator
	breaker  *scerrors.CircuitBreaker
	enhancer *Enhancer
	maxURLs  int
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithGenerator sets the model used for ranking. A nil generator means heuristic only.
func WithGenerator(g Generator) Option {
	return func(r *Ranker) { r.gen = g }
}

// WithEnhancer replaces the template enhancer.
func WithEnhancer(e *Enhancer) Option {
	return func(r *Ranker) {
		if e != nil {
			r.enhancer = e
		}
	}
}

// WithMaxURLs caps how many candidates are sent to the model.
func WithMaxURLs(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.maxURLs = n
		}
	}
}

// WithBreaker configures the circuit breaker guarding the generator. Zero values keep the defaults.
func WithBreaker(maxFailures int, reset time.Duration) Option {
	return func(r *Ranker) {
		var opts []scerrors.CircuitBreakerOption
		if maxFailures > 0 {
			opts = append(opts, scerrors.WithMaxFailures(maxFailures))
		}
		if reset > 0 {
			opts = append(opts, scerrors.WithResetTimeout(reset))
		}
		r.breaker = scerrors.NewCircuitBreaker("ranker", opts...)
	}
}

// WithTimeout bounds a single generate call.
func WithTimeout(d time.Duration) Option {
	return func(r *Ranker) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRanker creates a Ranker.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		breaker:  scerrors.NewCircuitBreaker("ranker"),
		enhancer: NewEnhancer(),
		maxURLs:  MaxRankingURLs,
		timeout:  DefaultLLMTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RankAndEnhance returns one Candidate per input result, ordered by score, and an
// enhanced query. It never fails: any model problem yields the heuristic outcome.
func (r *Ranker) RankAndEnhance(ctx context.Context, results []search.Result, query string) Outcome {
	if r.gen == nil || len(results) == 0 {
		return r.fallback(results, query, nil)
	}

	ranked := min(len(results), r.maxURLs)
	prompt := buildPrompt(query, results[:ranked])

	out, _ := scerrors.CircuitExecuteWithResult(r.breaker,
		func() (Outcome, error) { return r.rankWithModel(ctx, prompt, results, ranked, query) },
		func(err error) (Outcome, error) { return r.fallback(results, query, err), nil },
	)
	return out
}

func (r *Ranker) rankWithModel(ctx context.Context, prompt string, results []search.Result, ranked int, query string) (Outcome, error) {
	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.gen.Generate(gctx, prompt)
	if err != nil {
		return Outcome{}, scerrors.New(scerrors.ErrCodeLLMFailed, "generate ranking", err)
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return Outcome{}, err
	}

	enhanced := resp.EnhancedQuery
	if !acceptEnhanced(query, enhanced) {
		r.logger.Debug("enhanced query rejected, using template",
			slog.String("model_query", enhanced))
		enhanced = r.enhancer.Enhance(query)
	}

	candidates := reconcile(results, ranked, resp.Rankings)
	r.logger.Debug("ranked with model",
		slog.String("model", r.gen.ModelName()),
		slog.Int("candidates", len(candidates)),
		slog.Int("model_entries", len(resp.Rankings)))

	return Outcome{Candidates: candidates, EnhancedQuery: enhanced, Path: PathLLM}, nil
}

func (r *Ranker) fallback(results []search.Result, query string, cause error) Outcome {
	if cause != nil {
		attrs := []any{slog.String("error", cause.Error())}
		if errors.Is(cause, scerrors.ErrCircuitOpen) {
			attrs = append(attrs, slog.String("circuit", r.breaker.State().String()))
		}
		r.logger.Warn("model ranking unavailable, using heuristic", attrs...)
	}
	return Outcome{
		Candidates:    Heuristic(results, query),
		EnhancedQuery: r.enhancer.Enhance(query),
		Path:          PathHeuristic,
	}
}

// Breaker exposes the circuit breaker state for diagnostics.
func (r *Ranker) Breaker() *scerrors.CircuitBreaker {
	return r.breaker
}
