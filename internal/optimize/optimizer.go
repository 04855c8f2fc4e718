// Package optimize trims scraped pages down to the passages most relevant to
// the query, using a throwaway vector collection per call.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanscout/internal/chunk"
	"github.com/Aman-CERP/amanscout/internal/embed"
	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/store"
)

const (
	DefaultEmbedBatch  = 16
	DefaultUpsertBatch = 100
	DefaultQueryLimit  = 30
	DefaultMinScore    = 0.6
	DefaultBudget      = 25000
	maxDefaultWorkers  = 4
)

// DefaultStaticMinScore keeps every ranked chunk for hash embeddings.
const DefaultStaticMinScore = 0.0

// Teardown selects how a session collection is destroyed.
type Teardown int

const (
	// TeardownBackground deletes the session in a goroutine.
	TeardownBackground Teardown = iota
	// TeardownSync deletes the session before Optimize returns.
	TeardownSync
)

// Optimizer runs the chunk, embed, store, query and reconstruct cycle.
type Optimizer struct {
	embedder    embed.Embedder
	collections *store.Collections[chunk.Chunk]
	embedBatch  int
	upsertBatch int
	queryLimit  int
	minScore    float64
	staticMin   float64
	workers     int
	teardown    Teardown
	onFallback  func(error)
	logger      *slog.Logger

	pending sync.WaitGroup
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithCollections shares a collection set instead of a private one.
func WithCollections(c *store.Collections[chunk.Chunk]) Option {
	return func(o *Optimizer) {
		if c != nil {
			o.collections = c
		}
	}
}

// WithBatchSizes sets the embedding and upsert batch sizes.
func WithBatchSizes(embedBatch, upsertBatch int) Option {
	return func(o *Optimizer) {
		if embedBatch > 0 {
			o.embedBatch = embedBatch
		}
		if upsertBatch > 0 {
			o.upsertBatch = upsertBatch
		}
	}
}

// WithQuery sets the hit limit and minimum similarity for retrieval.
func WithQuery(limit int, minScore float64) Option {
	return func(o *Optimizer) {
		if limit > 0 {
			o.queryLimit = limit
		}
		if minScore >= 0 {
			o.minScore = minScore
		}
	}
}

// WithStaticMinScore sets the similarity floor used with the static embedder.
func WithStaticMinScore(minScore float64) Option {
	return func(o *Optimizer) {
		if minScore >= 0 {
			o.staticMin = minScore
		}
	}
}

// WithWorkers caps concurrent embedding batches.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSyncCleanup destroys sessions before Optimize returns.
func WithSyncCleanup(enabled bool) Option {
	return func(o *Optimizer) {
		if enabled {
			o.teardown = TeardownSync
		} else {
			o.teardown = TeardownBackground
		}
	}
}

// WithFallbackHook is called whenever Optimize falls back to the original sources.
func WithFallbackHook(fn func(error)) Option {
	return func(o *Optimizer) { o.onFallback = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// DefaultWorkers returns min(NumCPU, 4).
func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxDefaultWorkers)
}

// New creates an Optimizer over the given embedder.
func New(embedder embed.Embedder, opts ...Option) *Optimizer {
	o := &Optimizer{
		embedder:    embedder,
		collections: store.NewCollections[chunk.Chunk](),
		embedBatch:  DefaultEmbedBatch,
		upsertBatch: DefaultUpsertBatch,
		queryLimit:  DefaultQueryLimit,
		minScore:    DefaultMinScore,
		staticMin:   DefaultStaticMinScore,
		workers:     DefaultWorkers(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns the passages of sources most relevant to the enhanced query
// (or query, when enhanced is empty), within budget characters. On any
// failure the sources are returned unmodified.
func (o *Optimizer) Optimize(ctx context.Context, sources []scrape.Outcome, query, enhanced string, budget int) []Source {
	if len(sources) == 0 {
		return []Source{}
	}

	start := time.Now()
	out, err := o.optimize(ctx, sources, query, enhanced, budget)
	if err != nil {
		o.logger.Warn("optimizer fell back to original sources",
			slog.String("error", err.Error()),
			slog.String("code", scerrors.GetCode(err)),
			slog.Int("sources", len(sources)))
		if o.onFallback != nil {
			o.onFallback(err)
		}
		return Passthrough(sources)
	}

	o.logger.Debug("optimized sources",
		slog.Int("in", len(sources)),
		slog.Int("out", len(out)),
		slog.Int("budget", budget),
		slog.Duration("took", time.Since(start)))
	return out
}

func (o *Optimizer) optimize(ctx context.Context, sources []scrape.Outcome, query, enhanced string, budget int) (out []Source, err error) {
	if o.embedder == nil {
		return nil, scerrors.New(scerrors.ErrCodeOptimizeFailed, "no embedder configured", nil)
	}

	name := "session_" + uuid.NewString()[:8]
	if err := o.collections.Create(ctx, name, o.embedder.Dimensions()); err != nil {
		return nil, err
	}
	defer o.release(name)
	defer func() {
		if r := recover(); r != nil {
			err = scerrors.Newf(scerrors.ErrCodeInternal, "optimizer panic: %v", r)
		}
	}()

	chunks := chunk.Split(toChunkSources(sources))
	if len(chunks) == 0 {
		return nil, scerrors.New(scerrors.ErrCodeChunkingFailed, "no chunks produced", nil)
	}

	vectors, err := o.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := o.upsertChunks(ctx, name, chunks, vectors); err != nil {
		return nil, err
	}

	text := enhanced
	if text == "" {
		text = query
	}
	qv, err := o.embedder.Embed(ctx, text)
	if err != nil {
		return nil, scerrors.Wrap(scerrors.ErrCodeEmbeddingFailed, err)
	}
	hits, err := o.collections.Query(ctx, name, qv, o.queryLimit, o.floor())
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, scerrors.Newf(scerrors.ErrCodeOptimizeFailed, "no chunk reached similarity %.2f", o.floor())
	}

	o.logger.Debug("retrieved chunks",
		slog.String("session", name),
		slog.Int("chunks", len(chunks)),
		slog.Int("hits", len(hits)))
	return reconstruct(hits, sources, budget), nil
}

// floor is the minimum similarity for retrieval with the current embedder.
func (o *Optimizer) floor() float64 {
	if embed.IsStatic(o.embedder) {
		return o.staticMin
	}
	return o.minScore
}

func toChunkSources(outcomes []scrape.Outcome) []chunk.Source {
	out := make([]chunk.Source, len(outcomes))
	for i, o := range outcomes {
		out[i] = chunk.Source{
			Index:        i,
			URL:          o.URL,
			Title:        o.Title,
			Text:         o.Content,
			QualityScore: o.QualityScore,
		}
	}
	return out
}

// embedChunks embeds in batches on a bounded pool. Vectors keep chunk order.
func (o *Optimizer) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for lo := 0; lo < len(chunks); lo += o.embedBatch {
		hi := min(lo+o.embedBatch, len(chunks))
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = scerrors.Newf(scerrors.ErrCodeInternal, "embed worker panic: %v", r)
				}
			}()
			texts := make([]string, hi-lo)
			for i := range texts {
				texts[i] = chunks[lo+i].Text
			}
			vecs, err := o.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return scerrors.Wrap(scerrors.ErrCodeEmbeddingFailed, err)
			}
			if len(vecs) != len(texts) {
				return scerrors.Newf(scerrors.ErrCodeEmbeddingFailed, "got %d vectors for %d chunks", len(vecs), len(texts))
			}
			copy(vectors[lo:hi], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (o *Optimizer) upsertChunks(ctx context.Context, name string, chunks []chunk.Chunk, vectors [][]float32) error {
	for lo := 0; lo < len(chunks); lo += o.upsertBatch {
		hi := min(lo+o.upsertBatch, len(chunks))
		points := make([]store.Point[chunk.Chunk], 0, hi-lo)
		for i := lo; i < hi; i++ {
			points = append(points, store.Point[chunk.Chunk]{
				ID:      chunks[i].ID,
				Vector:  vectors[i],
				Payload: chunks[i],
			})
		}
		if err := o.collections.Upsert(ctx, name, points); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", lo, err)
		}
	}
	return nil
}

// release deletes the session collection according to the teardown mode.
func (o *Optimizer) release(name string) {
	drop := func() {
		if err := o.collections.Delete(context.Background(), name); err != nil {
			o.logger.Warn("session cleanup failed",
				slog.String("session", name),
				slog.String("error", err.Error()))
			return
		}
		o.logger.Debug("session destroyed", slog.String("session", name))
	}

	if o.teardown == TeardownSync {
		drop()
		return
	}
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		drop()
	}()
}

// Wait blocks until background session teardowns have finished.
func (o *Optimizer) Wait() {
	o.pending.Wait()
}

// Sessions lists live session collections.
func (o *Optimizer) Sessions() []string {
	return o.collections.Names()
}

// Close waits for pending teardowns and releases the embedder.
func (o *Optimizer) Close() error {
	o.Wait()
	if o.embedder == nil {
		return nil
	}
	return o.embedder.Close()
}
