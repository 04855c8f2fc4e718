package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

// Point is a vector with its payload.
type Point[P any] struct {
	ID      string
	Vector  []float32
	Payload P
}

// Hit is a query match. Score is cosine similarity in [-1, 1].
type Hit[P any] struct {
	ID      string
	Payload P
	Score   float64
}

// Collections is a concurrency-safe set of named vector collections.
type Collections[P any] struct {
	mu    sync.RWMutex
	items map[string]*collection[P]
}

type collection[P any] struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	dims     int
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[uint64]P
	nextKey  uint64
}

// NewCollections creates an empty set of collections.
func NewCollections[P any]() *Collections[P] {
	return &Collections[P]{items: make(map[string]*collection[P])}
}

// Create adds an empty collection with cosine distance. It fails if name exists.
func (c *Collections[P]) Create(_ context.Context, name string, dims int) error {
	if dims <= 0 {
		return scerrors.Newf(scerrors.ErrCodeInvalidInput, "collection %q: dimensions must be positive, got %d", name, dims)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[name]; ok {
		return scerrors.Newf(scerrors.ErrCodeCollectionExists, "collection %q already exists", name)
	}

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25

	c.items[name] = &collection[P]{
		graph:    g,
		dims:     dims,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		payloads: make(map[uint64]P),
	}
	return nil
}

// Upsert inserts points, replacing any with the same ID.
func (c *Collections[P]) Upsert(_ context.Context, name string, points []Point[P]) error {
	col, err := c.get(name)
	if err != nil {
		return err
	}

	for _, p := range points {
		if len(p.Vector) != col.dims {
			return scerrors.Newf(scerrors.ErrCodeDimensionMismatch,
				"collection %q: point %q has %d dimensions, want %d", name, p.ID, len(p.Vector), col.dims)
		}
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	for _, p := range points {
		// replaced nodes stay in the graph but lose their mapping
		if old, ok := col.idMap[p.ID]; ok {
			delete(col.keyMap, old)
			delete(col.payloads, old)
		}

		key := col.nextKey
		col.nextKey++

		col.graph.Add(hnsw.MakeNode(key, normalized(p.Vector)))
		col.idMap[p.ID] = key
		col.keyMap[key] = p.ID
		col.payloads[key] = p.Payload
	}
	return nil
}

// Query returns up to limit hits with similarity >= minScore, best first.
func (c *Collections[P]) Query(_ context.Context, name string, vector []float32, limit int, minScore float64) ([]Hit[P], error) {
	col, err := c.get(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != col.dims {
		return nil, scerrors.Newf(scerrors.ErrCodeDimensionMismatch,
			"collection %q: query has %d dimensions, want %d", name, len(vector), col.dims)
	}

	col.mu.RLock()
	defer col.mu.RUnlock()
	if limit <= 0 || col.graph.Len() == 0 {
		return []Hit[P]{}, nil
	}

	q := normalized(vector)
	// over-fetch to make up for orphaned nodes
	k := min(limit+col.graph.Len()-len(col.idMap), col.graph.Len())
	nodes := col.graph.Search(q, k)

	hits := make([]Hit[P], 0, len(nodes))
	for _, n := range nodes {
		id, ok := col.keyMap[n.Key]
		if !ok {
			continue
		}
		score := 1 - float64(hnsw.CosineDistance(q, n.Value))
		if math.IsNaN(score) || score < minScore {
			continue
		}
		hits = append(hits, Hit[P]{ID: id, Payload: col.payloads[n.Key], Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Delete removes a collection.
func (c *Collections[P]) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[name]; !ok {
		return scerrors.Newf(scerrors.ErrCodeCollectionMissing, "collection %q does not exist", name)
	}
	delete(c.items, name)
	return nil
}

// Exists reports whether a collection exists.
func (c *Collections[P]) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[name]
	return ok
}

// Names returns the existing collection names, sorted.
func (c *Collections[P]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.items))
	for n := range c.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of live points in a collection.
func (c *Collections[P]) Count(name string) (int, error) {
	col, err := c.get(name)
	if err != nil {
		return 0, err
	}
	col.mu.RLock()
	defer col.mu.RUnlock()
	return len(col.idMap), nil
}

func (c *Collections[P]) get(name string) (*collection[P], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.items[name]
	if !ok {
		return nil, scerrors.Newf(scerrors.ErrCodeCollectionMissing, "collection %q does not exist", name)
	}
	return col, nil
}

func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}
	mag := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= mag
	}
	return out
}
