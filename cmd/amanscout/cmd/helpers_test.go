package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanscout/internal/config"
	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
	"github.com/Aman-CERP/amanscout/internal/rank"
	"github.com/Aman-CERP/amanscout/internal/scrape"
	"github.com/Aman-CERP/amanscout/internal/search"
)

type stubSearcher struct{ results []search.Result }

func (s stubSearcher) Search(context.Context, string, int, int) []search.Result { return s.results }

func (s stubSearcher) SearchWithLadder(context.Context, string, int) []search.Result {
	return s.results
}

type stubRanker struct{}

func (stubRanker) RankAndEnhance(_ context.Context, results []search.Result, query string) rank.Outcome {
	out := rank.Outcome{Path: rank.PathHeuristic, EnhancedQuery: query + " guide"}
	for _, r := range results {
		out.Candidates = append(out.Candidates, rank.Candidate{Result: r, Score: 60, Strategy: rank.StrategyStatic})
	}
	return out
}

type stubExecutor struct{}

func (stubExecutor) Execute(_ context.Context, candidates []rank.Candidate, required int) []scrape.Outcome {
	var out []scrape.Outcome
	for _, c := range candidates {
		if len(out) == required {
			break
		}
		out = append(out, scrape.Outcome{
			Success:      true,
			URL:          c.URL,
			Title:        c.Title,
			Content:      "Channels connect goroutines.",
			StrategyUsed: rank.StrategyStatic,
			QualityScore: 70,
		})
	}
	return out
}

type stubOptimizer struct{}

func (stubOptimizer) Optimize(_ context.Context, sources []scrape.Outcome, _, _ string, _ int) []optimize.Source {
	out := make([]optimize.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, optimize.Source{
			URL:             s.URL,
			Title:           s.Title,
			Content:         s.Content,
			QualityScore:    90,
			WordCount:       3,
			BudgetCharsUsed: len(s.Content),
			StrategyChain:   "static-vector-optimized",
		})
	}
	return out
}

func (stubOptimizer) Close() error { return nil }

// isolate points the home, config and history locations at a temp dir and
// replaces the pipeline collaborators with stubs.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home+"/.config")
	t.Setenv("AMANSCOUT_HISTORY_PATH", home+"/.amanscout/history.db")

	results := []search.Result{
		{Title: "Go channels", URL: "https://go.dev/channels"},
		{Title: "Effective Go", URL: "https://go.dev/effective"},
		{Title: "Tour", URL: "https://go.dev/tour"},
	}
	orig := newPipeline
	newPipeline = func(cfg *config.Config, opts ...pipeline.Option) (*pipeline.Context, error) {
		opts = append(opts,
			pipeline.WithSearcher(stubSearcher{results: results}),
			pipeline.WithRanker(stubRanker{}),
			pipeline.WithExecutor(stubExecutor{}),
			pipeline.WithOptimizer(stubOptimizer{}),
		)
		return orig(cfg, opts...)
	}
	t.Cleanup(func() { newPipeline = orig })
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireNoErr(t *testing.T, err error, stderr string) {
	t.Helper()
	require.NoError(t, err, "stderr: %s", stderr)
}
