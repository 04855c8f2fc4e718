package scrape

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Aman-CERP/amanscout/internal/rank"
	"github.com/Aman-CERP/amanscout/internal/search"
)

func TestMain(m *testing.M) {
	// started at init by the genai auth dependency
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeFetcher returns a fixed page per URL after a delay, honoring cancellation.
type fakeFetcher struct {
	strategy rank.Strategy
	delay    time.Duration
	pages    map[string]Page
	fallback Page

	calls     atomic.Int32
	cancelled atomic.Int32
}

func (f *fakeFetcher) Strategy() rank.Strategy { return f.strategy }

func (f *fakeFetcher) Fetch(ctx context.Context, url string) Page {
	f.calls.Add(1)
	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			f.cancelled.Add(1)
			return failed(ctx.Err())
		case <-t.C:
		}
	}
	if p, ok := f.pages[url]; ok {
		return p
	}
	return f.fallback
}

func goodPage(words int) Page {
	return Page{Success: true, Title: "T", Content: strings.TrimSpace(strings.Repeat("word ", words))}
}

func candidate(url string, s rank.Strategy, score float64) rank.Candidate {
	return rank.Candidate{Result: search.Result{URL: url, Title: "title"}, Score: score, Strategy: s}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) URLDone(url, outcome string, s rank.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("%s %s %s", outcome, s, url))
}

func TestExecute_FastStrategyWinsAndCancelsLoser(t *testing.T) {
	// Given: a fast static fetcher and a slow dynamic one
	static := &fakeFetcher{strategy: rank.StrategyStatic, fallback: goodPage(600)}
	dynamic := &fakeFetcher{strategy: rank.StrategyDynamic, delay: 5 * time.Second, fallback: goodPage(600)}
	e := NewExecutor([]Fetcher{static, dynamic})

	// When: scraping one static-suggested candidate
	start := time.Now()
	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://en.wikipedia.org/wiki/Go", rank.StrategyStatic, 90),
	}, 1)

	// Then: static wins quickly and dynamic was cancelled
	require.Len(t, out, 1)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, rank.StrategyStatic, out[0].StrategyUsed)
	assert.Equal(t, 70, out[0].QualityScore)
	assert.Equal(t, 600, out[0].WordCount)
	assert.Equal(t, float64(90), out[0].Relevance)
	assert.Equal(t, int32(1), dynamic.calls.Load())
	assert.Equal(t, int32(1), dynamic.cancelled.Load())
}

func TestExecute_LowQualityDiscardedWhileWaiting(t *testing.T) {
	// Given: static returns thin content fast, dynamic returns rich content later
	static := &fakeFetcher{strategy: rank.StrategyStatic, fallback: goodPage(5)}
	dynamic := &fakeFetcher{strategy: rank.StrategyDynamic, delay: 50 * time.Millisecond, fallback: goodPage(300)}
	e := NewExecutor([]Fetcher{static, dynamic})

	// When: scraping
	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://example.org/a", rank.StrategyStatic, 50),
	}, 1)

	// Then: the acceptable dynamic page is used
	require.Len(t, out, 1)
	assert.Equal(t, rank.StrategyDynamic, out[0].StrategyUsed)
}

func TestExecute_DynamicSuggestionRunsOnlyDynamic(t *testing.T) {
	static := &fakeFetcher{strategy: rank.StrategyStatic, fallback: goodPage(600)}
	dynamic := &fakeFetcher{strategy: rank.StrategyDynamic, fallback: goodPage(600)}
	e := NewExecutor([]Fetcher{static, dynamic})

	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://example.com/spa", rank.StrategyDynamic, 50),
	}, 1)

	require.Len(t, out, 1)
	assert.Equal(t, int32(0), static.calls.Load())
	assert.Equal(t, rank.StrategyDynamic, out[0].StrategyUsed)
}

func TestExecute_MissingStrategiesSkipURL(t *testing.T) {
	// Given: only a static fetcher and a specialized-suggested candidate
	obs := &recordingObserver{}
	static := &fakeFetcher{strategy: rank.StrategyStatic, fallback: goodPage(600)}
	e := NewExecutor([]Fetcher{static}, WithObserver(obs))

	// When: scraping
	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://medium.com/post", rank.StrategySpecialized, 50),
	}, 1)

	// Then: neither specialized nor dynamic exists, so nothing is produced
	assert.Empty(t, out)
	assert.Equal(t, int32(0), static.calls.Load())
	assert.Equal(t, []string{"skipped specialized https://medium.com/post"}, obs.events)
}

func TestExecute_BatchSizing(t *testing.T) {
	// Given: 20 candidates whose pages all fail
	var mu sync.Mutex
	var peak, active int
	f := &trackingFetcher{strategy: rank.StrategyDynamic, onEnter: func(d int) {
		mu.Lock()
		active += d
		if active > peak {
			peak = active
		}
		mu.Unlock()
	}}
	e := NewExecutor([]Fetcher{f})

	candidates := make([]rank.Candidate, 20)
	for i := range candidates {
		candidates[i] = candidate(fmt.Sprintf("https://x%d.com/", i), rank.StrategyDynamic, 1)
	}

	// When: requiring 2
	out := e.Execute(context.Background(), candidates, 2)

	// Then: batches are min(8, 2*remaining) = 4 wide and every candidate was tried
	assert.Empty(t, out)
	assert.LessOrEqual(t, peak, 4)
	assert.Equal(t, int32(20), f.calls.Load())
}

type trackingFetcher struct {
	strategy rank.Strategy
	onEnter  func(delta int)
	calls    atomic.Int32
}

func (f *trackingFetcher) Strategy() rank.Strategy { return f.strategy }

func (f *trackingFetcher) Fetch(ctx context.Context, _ string) Page {
	f.calls.Add(1)
	f.onEnter(1)
	defer f.onEnter(-1)
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Millisecond):
	}
	return failed(fmt.Errorf("boom"))
}

func TestExecute_StopsOnceRequiredReached(t *testing.T) {
	// Given: eight candidates, two fast and good, the rest slow
	pages := map[string]Page{
		"https://fast1.org/": goodPage(600),
		"https://fast2.org/": goodPage(250),
	}
	slow := &slowUnlessListed{fast: pages}
	e := NewExecutor([]Fetcher{slow}, WithMaxBatch(8))

	candidates := []rank.Candidate{
		candidate("https://slow1.org/", rank.StrategyStatic, 9),
		candidate("https://fast2.org/", rank.StrategyStatic, 8),
		candidate("https://slow2.org/", rank.StrategyStatic, 7),
		candidate("https://fast1.org/", rank.StrategyStatic, 6),
	}

	// When: requiring 2
	start := time.Now()
	out := e.Execute(context.Background(), candidates, 2)

	// Then: returns without waiting for slow pages, sorted by quality
	require.Len(t, out, 2)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "https://fast1.org/", out[0].URL)
	assert.Equal(t, "https://fast2.org/", out[1].URL)
	assert.GreaterOrEqual(t, out[0].QualityScore, out[1].QualityScore)
}

type slowUnlessListed struct {
	fast map[string]Page
}

func (s *slowUnlessListed) Strategy() rank.Strategy { return rank.StrategyStatic }

func (s *slowUnlessListed) Fetch(ctx context.Context, url string) Page {
	if p, ok := s.fast[url]; ok {
		return p
	}
	select {
	case <-ctx.Done():
		return failed(ctx.Err())
	case <-time.After(10 * time.Second):
		return goodPage(600)
	}
}

func TestExecute_StrategyTimeout(t *testing.T) {
	slow := &fakeFetcher{strategy: rank.StrategyDynamic, delay: time.Minute, fallback: goodPage(600)}
	e := NewExecutor([]Fetcher{slow}, WithStrategyTimeout(20*time.Millisecond))

	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://example.com/", rank.StrategyDynamic, 1),
	}, 1)

	assert.Empty(t, out)
	assert.Equal(t, int32(1), slow.cancelled.Load())
}

func TestExecute_TruncatesAndSortsByQuality(t *testing.T) {
	pages := map[string]Page{
		"https://a.com/": goodPage(120),
		"https://b.org/": goodPage(600),
		"https://c.com/": goodPage(250),
	}
	f := &fakeFetcher{strategy: rank.StrategyDynamic, pages: pages}
	e := NewExecutor([]Fetcher{f})

	out := e.Execute(context.Background(), []rank.Candidate{
		candidate("https://a.com/", rank.StrategyDynamic, 3),
		candidate("https://b.org/", rank.StrategyDynamic, 2),
		candidate("https://c.com/", rank.StrategyDynamic, 1),
	}, 3)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"https://b.org/", "https://c.com/", "https://a.com/"},
		[]string{out[0].URL, out[1].URL, out[2].URL})
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{strategy: rank.StrategyStatic, fallback: goodPage(600)}
	out := NewExecutor([]Fetcher{f}).Execute(ctx, []rank.Candidate{
		candidate("https://example.com/", rank.StrategyStatic, 1),
	}, 1)

	assert.Empty(t, out)
	assert.Equal(t, int32(0), f.calls.Load())
}
