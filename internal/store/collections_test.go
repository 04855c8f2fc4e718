package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

type payload struct {
	Source int
	Text   string
}

func TestCollections_Lifecycle(t *testing.T) {
	// Given: an empty set
	c := NewCollections[payload]()
	ctx := context.Background()

	// When: creating, then creating again
	require.NoError(t, c.Create(ctx, "session_a", 3))
	err := c.Create(ctx, "session_a", 3)

	// Then: the duplicate fails with a typed error
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeCollectionExists))
	assert.True(t, c.Exists("session_a"))
	assert.Equal(t, []string{"session_a"}, c.Names())

	require.NoError(t, c.Delete(ctx, "session_a"))
	assert.False(t, c.Exists("session_a"))
	assert.True(t, scerrors.HasCode(c.Delete(ctx, "session_a"), scerrors.ErrCodeCollectionMissing))
}

func TestCollections_QueryScoresAndThreshold(t *testing.T) {
	// Given: three points at known angles from the query
	c := NewCollections[payload]()
	ctx := context.Background()
	require.NoError(t, c.Create(ctx, "s", 2))
	require.NoError(t, c.Upsert(ctx, "s", []Point[payload]{
		{ID: "same", Vector: []float32{2, 0}, Payload: payload{Source: 0, Text: "same"}},
		{ID: "diag", Vector: []float32{1, 1}, Payload: payload{Source: 1, Text: "diag"}},
		{ID: "orth", Vector: []float32{0, 5}, Payload: payload{Source: 2, Text: "orth"}},
	}))

	// When: querying with a 0.6 threshold
	hits, err := c.Query(ctx, "s", []float32{1, 0}, 10, 0.6)

	// Then: cosine similarity, best first, orthogonal filtered out
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "same", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Equal(t, "diag", hits[1].ID)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)
	assert.Equal(t, payload{Source: 1, Text: "diag"}, hits[1].Payload)
}

func TestCollections_QueryLimit(t *testing.T) {
	c := NewCollections[payload]()
	ctx := context.Background()
	require.NoError(t, c.Create(ctx, "s", 2))
	var pts []Point[payload]
	for i := 0; i < 20; i++ {
		pts = append(pts, Point[payload]{ID: fmt.Sprint(i), Vector: []float32{1, float32(i) / 100}})
	}
	require.NoError(t, c.Upsert(ctx, "s", pts))

	hits, err := c.Query(ctx, "s", []float32{1, 0}, 5, 0)

	require.NoError(t, err)
	assert.Len(t, hits, 5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestCollections_UpsertReplacesByID(t *testing.T) {
	c := NewCollections[payload]()
	ctx := context.Background()
	require.NoError(t, c.Create(ctx, "s", 2))

	require.NoError(t, c.Upsert(ctx, "s", []Point[payload]{{ID: "a", Vector: []float32{1, 0}, Payload: payload{Text: "old"}}}))
	require.NoError(t, c.Upsert(ctx, "s", []Point[payload]{{ID: "a", Vector: []float32{0, 1}, Payload: payload{Text: "new"}}}))

	n, err := c.Count("s")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := c.Query(ctx, "s", []float32{0, 1}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Payload.Text)
}

func TestCollections_DimensionMismatch(t *testing.T) {
	c := NewCollections[payload]()
	ctx := context.Background()
	require.NoError(t, c.Create(ctx, "s", 3))

	err := c.Upsert(ctx, "s", []Point[payload]{{ID: "a", Vector: []float32{1, 0}}})
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeDimensionMismatch))

	_, err = c.Query(ctx, "s", []float32{1}, 5, 0)
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeDimensionMismatch))

	_, err = c.Query(ctx, "missing", []float32{1, 0, 0}, 5, 0)
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeCollectionMissing))

	assert.Error(t, c.Create(ctx, "bad", 0))
}

func TestCollections_EmptyCollectionQuery(t *testing.T) {
	c := NewCollections[payload]()
	ctx := context.Background()
	require.NoError(t, c.Create(ctx, "s", 2))

	hits, err := c.Query(ctx, "s", []float32{1, 0}, 5, 0)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCollections_ConcurrentSessions(t *testing.T) {
	// Given: many sessions working in parallel
	c := NewCollections[payload]()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("session_%d", i)
			assert.NoError(t, c.Create(ctx, name, 2))
			assert.NoError(t, c.Upsert(ctx, name, []Point[payload]{{ID: "x", Vector: []float32{1, float32(i)}}}))
			hits, err := c.Query(ctx, name, []float32{1, float32(i)}, 1, 0.9)
			assert.NoError(t, err)
			assert.Len(t, hits, 1)
			assert.NoError(t, c.Delete(ctx, name))
		}(i)
	}
	wg.Wait()

	// Then: every session cleaned up after itself
	assert.Empty(t, c.Names())
}
