package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search index lifecycle metrics.
var (
	IndexState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_index_state",
			Help:      "Current search index lifecycle state (1 for the active state)",
		},
		[]string{"state"},
	)

	IndexLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_index_loads_total",
			Help:      "Cached search index load attempts",
		},
		[]string{"result"}, // "ok" / "miss" / "error"
	)

	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_index_builds_total",
			Help:      "Search index builds from the record store",
		},
		[]string{"result"},
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_index_build_duration_seconds",
			Help:      "Search index build duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IndexPersistsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_index_persists_total",
			Help:      "Background writes of a rebuilt search index",
		},
		[]string{"result"},
	)
)

var indexStates = []string{"absent", "loading", "building", "ready"}

var registerIndexOnce sync.Once

// RegisterIndexMetrics registers search index metrics. Safe to call more than once.
func RegisterIndexMetrics() {
	registerIndexOnce.Do(func() {
		prometheus.MustRegister(IndexState)
		prometheus.MustRegister(IndexLoadsTotal)
		prometheus.MustRegister(IndexBuildsTotal)
		prometheus.MustRegister(IndexBuildDuration)
		prometheus.MustRegister(IndexPersistsTotal)
	})
}

// IndexObserver records lifecycle events into the index metrics.
type IndexObserver struct{}

// SetIndexState marks state as the only active state.
func (IndexObserver) SetIndexState(state string) {
	for _, s := range indexStates {
		v := 0.0
		if s == state {
			v = 1
		}
		IndexState.WithLabelValues(s).Set(v)
	}
}

// ObserveIndexLoad counts a load attempt.
func (IndexObserver) ObserveIndexLoad(result string) {
	IndexLoadsTotal.WithLabelValues(result).Inc()
}

// ObserveIndexBuild counts a build and records its duration.
func (IndexObserver) ObserveIndexBuild(result string, d time.Duration) {
	IndexBuildsTotal.WithLabelValues(result).Inc()
	IndexBuildDuration.Observe(d.Seconds())
}

// ObserveIndexPersist counts a persist attempt.
func (IndexObserver) ObserveIndexPersist(result string) {
	IndexPersistsTotal.WithLabelValues(result).Inc()
}
