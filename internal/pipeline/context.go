package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/amanscout/internal/config"
	"github.com/Aman-CERP/amanscout/internal/embed"
	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/metrics"
	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/rank"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/search"
)

// Recorder persists run summaries.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
}

// Context holds the collaborators shared by every run. Build it once with New.
type Context struct {
	cfg       *config.Config
	searcher  Searcher
	ranker    Ranker
	executor  Executor
	optimizer Optimizer
	recorder  Recorder
	metrics   *metrics.Metrics
	progress  func(Event)
	logger    *slog.Logger
	offline   bool

	closers []io.Closer
}

// Option configures a Context.
type Option func(*Context)

// WithSearcher injects the searcher.
func WithSearcher(s Searcher) Option {
	return func(c *Context) { c.searcher = s }
}

// WithRanker injects the ranker.
func WithRanker(r Ranker) Option {
	return func(c *Context) { c.ranker = r }
}

// WithExecutor injects the scrape executor.
func WithExecutor(e Executor) Option {
	return func(c *Context) { c.executor = e }
}

// WithOptimizer injects the optimizer.
func WithOptimizer(o Optimizer) Option {
	return func(c *Context) { c.optimizer = o }
}

// WithRecorder stores a summary of every run.
func WithRecorder(r Recorder) Option {
	return func(c *Context) { c.recorder = r }
}

// WithMetrics records stage durations and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// WithProgress receives stage events.
func WithProgress(fn func(Event)) Option {
	return func(c *Context) { c.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOffline skips the language model and uses the static embedder.
func WithOffline(offline bool) Option {
	return func(c *Context) { c.offline = offline }
}

// New builds the shared collaborators from cfg. Injected collaborators are used
// as given; the rest are constructed here, including warming the specialized
// crawler's client.
func New(cfg *config.Config, opts ...Option) (*Context, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, scerrors.New(scerrors.ErrCodeConfigInvalid, "invalid configuration", err)
	}
	c := &Context{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	ctx := context.Background()
	if c.searcher == nil {
		c.searcher = c.buildSearcher()
	}
	if c.ranker == nil {
		c.ranker = c.buildRanker(ctx)
	}
	if c.executor == nil {
		c.executor = c.buildExecutor(ctx)
	}
	if c.optimizer == nil {
		c.optimizer = c.buildOptimizer(ctx)
	}
	return c, nil
}

func (c *Context) buildSearcher() *search.Searcher {
	sc := c.cfg.Search
	ddgOpts := []search.DuckDuckGoOption{search.WithUserAgents(c.cfg.Scrape.UserAgents)}
	if sc.Endpoint != "" {
		ddgOpts = append(ddgOpts, search.WithEndpoint(sc.Endpoint))
	}
	return search.NewSearcher(
		[]search.Provider{search.NewDuckDuckGo(ddgOpts...)},
		search.WithRetry(sc.Attempts, config.Duration(sc.RetryDelay, time.Second)),
		search.WithMultiplier(sc.Multiplier),
		search.WithLadder(sc.Ladder),
		search.WithLogger(c.logger),
	)
}

func (c *Context) buildRanker(ctx context.Context) *rank.Ranker {
	rc := c.cfg.Ranker
	opts := []rank.Option{
		rank.WithMaxURLs(rc.MaxURLs),
		rank.WithBreaker(rc.MaxFailures, 0),
		rank.WithTimeout(config.Duration(rc.Timeout, rank.DefaultLLMTimeout)),
		rank.WithLogger(c.logger),
	}

	provider := strings.ToLower(rc.Provider)
	if c.offline {
		provider = "none"
	}
	switch provider {
	case "genai":
		gen, err := rank.NewGenAIGenerator(ctx, c.cfg.APIKey(), rc.Model, float32(rc.Temperature))
		if err != nil {
			c.logger.Warn("genai ranker unavailable, using heuristic", slog.String("error", err.Error()))
		} else {
			opts = append(opts, rank.WithGenerator(gen))
		}
	case "ollama":
		opts = append(opts, rank.WithGenerator(rank.NewOllamaGenerator(rank.OllamaConfig{
			Host:        rc.Host,
			Model:       rc.Model,
			Temperature: rc.Temperature,
			Timeout:     config.Duration(rc.Timeout, rank.DefaultLLMTimeout),
		})))
	}
	return rank.NewRanker(opts...)
}

func (c *Context) buildExecutor(ctx context.Context) *scrape.Executor {
	sc := c.cfg.Scrape
	httpTimeout := config.Duration(sc.HTTPTimeout, 8*time.Second)

	specialized := scrape.NewSpecializedFetcher(httpTimeout, sc.UserAgents,
		scrape.WithRetries(sc.SpecializedRetries, 2*time.Second))
	if err := specialized.Warmup(ctx); err != nil {
		c.logger.Warn("specialized crawler warmup failed", slog.String("error", err.Error()))
	}

	fetchers := []scrape.Fetcher{
		scrape.NewStaticFetcher(httpTimeout, sc.UserAgents),
		specialized,
	}
	if !sc.DisableDynamic {
		dynamic := scrape.NewDynamicFetcher(scrape.DynamicConfig{
			Bin:      sc.BrowserBin,
			Headless: sc.Headless,
			Logger:   c.logger,
		})
		fetchers = append(fetchers, dynamic)
		c.closers = append(c.closers, dynamic)
	}

	opts := []scrape.ExecutorOption{
		scrape.WithStrategyTimeout(config.Duration(sc.StrategyTimeout, 15*time.Second)),
		scrape.WithMaxBatch(sc.MaxBatch),
		scrape.WithExecutorLogger(c.logger),
	}
	if c.metrics != nil {
		opts = append(opts, scrape.WithObserver(c.metrics))
	}
	return scrape.NewExecutor(fetchers, opts...)
}

func (c *Context) buildOptimizer(ctx context.Context) *optimize.Optimizer {
	oc := c.cfg.Optimizer
	provider, err := embed.ParseProvider(oc.Embedder)
	if err != nil || c.offline {
		provider = embed.ProviderStatic
	}

	embedder := embed.NewEmbedder(ctx, embed.Options{
		Provider:  provider,
		Model:     oc.Model,
		Host:      oc.Host,
		APIKey:    c.cfg.APIKey(),
		CacheSize: oc.CacheSize,
		Logger:    c.logger,
	})

	opts := []optimize.Option{
		optimize.WithBatchSizes(oc.EmbedBatch, oc.UpsertBatch),
		optimize.WithQuery(oc.QueryLimit, oc.MinScore),
		optimize.WithStaticMinScore(oc.StaticMinScore),
		optimize.WithWorkers(oc.MaxWorkers),
		optimize.WithSyncCleanup(oc.SyncCleanup),
		optimize.WithLogger(c.logger),
	}
	if c.metrics != nil {
		opts = append(opts, optimize.WithFallbackHook(c.metrics.OptimizerFellBack))
	}
	return optimize.New(embedder, opts...)
}

// Config returns the configuration the context was built from.
func (c *Context) Config() *config.Config { return c.cfg }

// WithDefaults fills zero Required and Budget from the configuration.
func (c *Context) WithDefaults(req Request) Request {
	if req.Required == 0 {
		req.Required = c.cfg.Pipeline.DefaultCount
	}
	if req.Budget == 0 {
		req.Budget = c.cfg.Pipeline.DefaultBudget
	}
	return req
}

// Close releases the browser and the embedder.
func (c *Context) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.optimizer != nil {
		if err := c.optimizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
