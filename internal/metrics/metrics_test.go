package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanscout/internal/rank"
)

func TestURLDone_CountsOutcomesAndWins(t *testing.T) {
	// Given fresh metrics
	m := New()

	// When URLs finish with mixed outcomes
	m.URLDone("https://a.com", "accepted", rank.StrategyStatic)
	m.URLDone("https://b.com", "accepted", rank.StrategyDynamic)
	m.URLDone("https://c.com", "rejected", "")
	m.URLDone("https://d.com", "skipped", "")

	// Then outcomes and strategy wins are counted separately
	assert.Equal(t, 2.0, testutil.ToFloat64(m.URLs.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.URLs.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyWins.WithLabelValues("static")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyWins.WithLabelValues("dynamic")))
}

func TestRankingAndFallbackCounters(t *testing.T) {
	m := New()

	m.RankingDone(rank.PathLLM)
	m.RankingDone(rank.PathHeuristic)
	m.RankingDone(rank.PathHeuristic)
	m.OptimizerFellBack(errors.New("embed failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingPath.WithLabelValues("llm")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RankingPath.WithLabelValues("heuristic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OptimizerFallback))
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveStage("search", time.Second)
		m.RankingDone(rank.PathLLM)
		m.OptimizerFellBack(nil)
		m.URLDone("u", "accepted", rank.StrategyStatic)
	})
}

func TestHandler_ExposesCollectors(t *testing.T) {
	// Given a recorded stage
	m := New()
	m.ObserveStage("search", 250*time.Millisecond)

	// When scraping the handler
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Then the stage histogram is present
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `amanscout_stage_duration_seconds_count{stage="search"} 1`), body)
}

func TestNew_IsolatedRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()

	a.RankingDone(rank.PathLLM)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.RankingPath.WithLabelValues("llm")))
	assert.Equal(t, 1, testutil.CollectAndCount(a.RankingPath))
}
