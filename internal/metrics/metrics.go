// Package metrics exposes Prometheus counters and histograms for pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/amanscout/internal/rank"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration     *prometheus.HistogramVec
	URLs              *prometheus.CounterVec
	RankingPath       *prometheus.CounterVec
	OptimizerFallback prometheus.Counter
	StrategyWins      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amanscout_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		URLs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanscout_urls_total",
				Help: "Candidate URLs by scrape outcome",
			},
			[]string{"outcome"},
		),
		RankingPath: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanscout_ranking_path_total",
				Help: "Ranking runs by path taken (llm or heuristic)",
			},
			[]string{"path"},
		),
		OptimizerFallback: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amanscout_optimizer_fallback_total",
				Help: "Optimizer runs that returned the unoptimized sources",
			},
		),
		StrategyWins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amanscout_strategy_wins_total",
				Help: "Accepted pages by the strategy that produced them",
			},
			[]string{"strategy"},
		),
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RankingDone counts the path a ranking run took.
func (m *Metrics) RankingDone(path rank.Path) {
	if m == nil {
		return
	}
	m.RankingPath.WithLabelValues(string(path)).Inc()
}

// OptimizerFellBack counts an optimizer fallback.
func (m *Metrics) OptimizerFellBack(error) {
	if m == nil {
		return
	}
	m.OptimizerFallback.Inc()
}

// URLDone implements scrape.Observer.
func (m *Metrics) URLDone(_ string, outcome string, strategy rank.Strategy) {
	if m == nil {
		return
	}
	m.URLs.WithLabelValues(outcome).Inc()
	if outcome == "accepted" && strategy != "" {
		m.StrategyWins.WithLabelValues(strategy.String()).Inc()
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
