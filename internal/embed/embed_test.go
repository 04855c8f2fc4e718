package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestStaticEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Goroutines are lightweight threads")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Goroutines are lightweight threads")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestStaticEmbedder_LexicalSimilarity(t *testing.T) {
	// Given: a query, a related text and an unrelated one
	e := NewStaticEmbedder()
	ctx := context.Background()
	q, _ := e.Embed(ctx, "weather forecast rain")
	near, _ := e.Embed(ctx, "the rain forecast for the weather this week")
	far, _ := e.Embed(ctx, "sourdough bread baking hydration")

	// Then: the related text scores higher
	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestStaticEmbedder_EmptyAndClosed(t *testing.T) {
	e := NewStaticEmbedder()

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Zero(t, norm(v))

	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

type countingEmbedder struct {
	StaticEmbedder
	batches atomic.Int32
	texts   atomic.Int32
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches.Add(1)
	c.texts.Add(int32(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_OnlyMissesReachInner(t *testing.T) {
	// Given: a cache primed with one text
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, err := c.EmbedBatch(ctx, []string{"alpha"})
	require.NoError(t, err)

	// When: embedding a batch that includes it
	out, err := c.EmbedBatch(ctx, []string{"beta", "alpha", "gamma"})

	// Then: only the two new texts were sent, and order is preserved
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.texts.Load())
	direct, _ := inner.StaticEmbedder.Embed(ctx, "alpha")
	assert.Equal(t, direct, out[1])
	assert.Equal(t, 3, c.Len())
}

func TestCachedEmbedder_AllHits(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 0)
	ctx := context.Background()

	_, _ = c.EmbedBatch(ctx, []string{"a", "b"})
	_, err := c.EmbedBatch(ctx, []string{"b", "a"})

	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.batches.Load())
	assert.Equal(t, "static", c.ModelName())
	assert.Equal(t, StaticDimensions, c.Dimensions())
}

func ollamaServer(t *testing.T, fail *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		if fail != nil && fail.Add(-1) >= 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := ollamaEmbedResponse{Model: req.Model}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(i + 1), 0, 0, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_DetectsDimensionsAndNormalizes(t *testing.T) {
	srv := ollamaServer(t, nil)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "m"})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 4, e.Dimensions())
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{1, 0, 0, 0}, out[1])
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	var fail atomic.Int32
	srv := ollamaServer(t, &fail)
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, SkipProbe: true})
	require.NoError(t, err)

	fail.Store(2)
	v, err := e.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}

func TestOllamaEmbedder_UnreachableFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Attempts: 1})

	require.Error(t, err)
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeEmbeddingFailed))
}

func TestNewEmbedder_FallsBackToStatic(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	e := NewEmbedder(context.Background(), Options{Provider: ProviderOllama, Host: srv.URL})

	assert.Equal(t, "static", e.ModelName())
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_GenAIWithoutKeyFallsBack(t *testing.T) {
	e := NewEmbedder(context.Background(), Options{Provider: ProviderGenAI})
	assert.Equal(t, "static", e.ModelName())
}

func TestParseProvider(t *testing.T) {
	for in, want := range map[string]Provider{
		"":       ProviderOllama,
		"Ollama": ProviderOllama,
		"gemini": ProviderGenAI,
		"genai":  ProviderGenAI,
		"static": ProviderStatic,
	} {
		got, err := ParseProvider(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseProvider("mlx")
	assert.Error(t, err)
}
