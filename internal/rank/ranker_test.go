package rank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/search"
)

type fakeGenerator struct {
	response string
	err      error
	calls    atomic.Int32
	prompt   atomic.Value
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.prompt.Store(prompt)
	return f.response, f.err
}

func (f *fakeGenerator) Available(context.Context) bool { return f.err == nil }
func (f *fakeGenerator) ModelName() string              { return "fake" }

func sampleResults(n int) []search.Result {
	out := make([]search.Result, n)
	for i := range out {
		out[i] = search.Result{
			Title:   fmt.Sprintf("Result %d", i),
			URL:     fmt.Sprintf("https://site%d.com/", i),
			Snippet: "snippet",
		}
	}
	return out
}

func urls(c []Candidate) []string {
	out := make([]string, len(c))
	for i := range c {
		out[i] = c[i].URL
	}
	return out
}

func TestRankAndEnhance_ModelRanking(t *testing.T) {
	// Given: a model that ranks two of three results, wrapped in prose
	gen := &fakeGenerator{response: `Sure! {"enhanced_query": "golang concurrency patterns goroutines channels",
		"url_rankings": [
			{"id": 2, "relevance_score": 90, "strategy": "dynamic", "reason": "best"},
			{"id": 0, "relevance_score": 70, "method": "crawl4ai", "reason": "ok"}
		]} hope this helps`}
	r := NewRanker(WithGenerator(gen))

	// When: ranking
	out := r.RankAndEnhance(context.Background(), sampleResults(3), "golang concurrency")

	// Then: model order, legacy method names and a fallback for the missing id
	assert.Equal(t, PathLLM, out.Path)
	assert.Equal(t, "golang concurrency patterns goroutines channels", out.EnhancedQuery)
	require.Len(t, out.Candidates, 3)
	assert.Equal(t, []string{"https://site2.com/", "https://site0.com/", "https://site1.com/"}, urls(out.Candidates))
	assert.Equal(t, StrategyDynamic, out.Candidates[0].Strategy)
	assert.Equal(t, StrategySpecialized, out.Candidates[1].Strategy)
	assert.Equal(t, float64(10), out.Candidates[2].Score)
	assert.Equal(t, StrategyStatic, out.Candidates[2].Strategy)
	assert.Equal(t, "Fallback - not ranked by model", out.Candidates[2].Reason)
}

func TestRankAndEnhance_IgnoresBadAndDuplicateIDs(t *testing.T) {
	// Given: out-of-range, negative and duplicate ids
	gen := &fakeGenerator{response: `{"enhanced_query": "a much longer enhanced query",
		"url_rankings": [
			{"id": 1, "relevance_score": 50, "strategy": "static"},
			{"id": 1, "relevance_score": 99, "strategy": "dynamic"},
			{"id": 7, "relevance_score": 99},
			{"id": -1, "relevance_score": 99}
		]}`}
	r := NewRanker(WithGenerator(gen))

	// When: ranking
	out := r.RankAndEnhance(context.Background(), sampleResults(2), "query")

	// Then: exactly one candidate per URL, first occurrence of id 1 wins
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "https://site1.com/", out.Candidates[0].URL)
	assert.Equal(t, float64(50), out.Candidates[0].Score)
	assert.Equal(t, StrategyStatic, out.Candidates[0].Strategy)
	assert.Equal(t, "https://site0.com/", out.Candidates[1].URL)
}

func TestRankAndEnhance_CapsPromptAtMaxURLs(t *testing.T) {
	// Given: more results than the cap, and a model ranking id 3
	gen := &fakeGenerator{response: `{"enhanced_query": "long enough enhanced query",
		"url_rankings": [{"id": 3, "relevance_score": 80}, {"id": 1, "relevance_score": 60}]}`}
	r := NewRanker(WithGenerator(gen), WithMaxURLs(2))

	// When: ranking five results
	out := r.RankAndEnhance(context.Background(), sampleResults(5), "query")

	// Then: id 3 was never shown and is ignored, every URL is still present
	prompt := gen.prompt.Load().(string)
	assert.Contains(t, prompt, "https://site1.com/")
	assert.NotContains(t, prompt, "https://site2.com/")
	require.Len(t, out.Candidates, 5)
	assert.Equal(t, "https://site1.com/", out.Candidates[0].URL)
	assert.Equal(t, []string{"https://site0.com/", "https://site2.com/", "https://site3.com/", "https://site4.com/"},
		urls(out.Candidates[1:]))
}

func TestRankAndEnhance_ShortEnhancedQueryUsesTemplate(t *testing.T) {
	gen := &fakeGenerator{response: `{"enhanced_query": "weather", "url_rankings": []}`}
	r := NewRanker(WithGenerator(gen))

	out := r.RankAndEnhance(context.Background(), sampleResults(1), "weather tomorrow")

	assert.Equal(t, PathLLM, out.Path)
	assert.True(t, strings.HasPrefix(out.EnhancedQuery, "weather tomorrow weather forecast"))
}

func TestRankAndEnhance_EnhancedShorterThanOriginalRejected(t *testing.T) {
	query := "a rather long question about distributed consensus"
	gen := &fakeGenerator{response: `{"enhanced_query": "raft paxos consensus", "url_rankings": []}`}
	r := NewRanker(WithGenerator(gen))

	out := r.RankAndEnhance(context.Background(), sampleResults(1), query)

	assert.Equal(t, NewEnhancer().Enhance(query), out.EnhancedQuery)
}

func TestRankAndEnhance_MalformedResponseFallsBack(t *testing.T) {
	// Given: a model answering without JSON
	gen := &fakeGenerator{response: "I cannot help with that"}
	r := NewRanker(WithGenerator(gen))
	results := []search.Result{
		{Title: "Unrelated", URL: "https://a.com/", Snippet: "nothing"},
		{Title: "Go tutorial", URL: "https://twitter.com/go", Snippet: "learn go fast"},
	}

	// When: ranking
	out := r.RankAndEnhance(context.Background(), results, "go tutorial")

	// Then: the heuristic outcome
	assert.Equal(t, PathHeuristic, out.Path)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "https://twitter.com/go", out.Candidates[0].URL)
	assert.Equal(t, float64(25), out.Candidates[0].Score)
	assert.Equal(t, StrategyDynamic, out.Candidates[0].Strategy)
	assert.Equal(t, NewEnhancer().Enhance("go tutorial"), out.EnhancedQuery)
}

func TestParseResponse_TypedError(t *testing.T) {
	_, err := parseResponse("no json here")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = parseResponse(`{"url_rankings": [{"id": "zero"}]}`)
	require.Error(t, err)
	assert.True(t, scerrors.HasCode(err, scerrors.ErrCodeMalformedResponse))
}

func TestRankAndEnhance_GeneratorErrorOpensCircuit(t *testing.T) {
	// Given: a failing generator behind a breaker tripping after 2 failures
	gen := &fakeGenerator{err: errors.New("connection refused")}
	r := NewRanker(WithGenerator(gen), WithBreaker(2, time.Hour))

	// When: ranking three times
	for i := 0; i < 3; i++ {
		out := r.RankAndEnhance(context.Background(), sampleResults(2), "query")
		assert.Equal(t, PathHeuristic, out.Path)
		assert.Len(t, out.Candidates, 2)
	}

	// Then: the third call short-circuits without reaching the model
	assert.Equal(t, int32(2), gen.calls.Load())
	assert.Equal(t, scerrors.StateOpen, r.Breaker().State())
}

func TestRankAndEnhance_NoGenerator(t *testing.T) {
	r := NewRanker()

	out := r.RankAndEnhance(context.Background(), sampleResults(3), "anything")

	assert.Equal(t, PathHeuristic, out.Path)
	assert.Len(t, out.Candidates, 3)
}

func TestHeuristic_StableTies(t *testing.T) {
	// Given: no keyword matches anywhere
	out := Heuristic(sampleResults(4), "zebra")

	// Then: input order is preserved
	assert.Equal(t, []string{"https://site0.com/", "https://site1.com/", "https://site2.com/", "https://site3.com/"}, urls(out))
	for _, c := range out {
		assert.Zero(t, c.Score)
	}
}
