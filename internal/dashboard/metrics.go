package dashboard

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts snapshot fetch outcomes.
type Metrics struct {
	fetchFailures *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the dashboard collectors. A nil registerer uses the
// process default once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayboard_snapshot_fetch_failures_total",
			Help: "Snapshot loads that degraded to empty collections.",
		}, []string{"collection"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayboard_snapshot_cache_lookups_total",
			Help: "Snapshot cache lookups by result.",
		}, []string{"result"}),
	}
	registerer.MustRegister(m.fetchFailures, m.cacheLookups)
	return m
}

func (m *Metrics) fetchFailed(collection string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) cacheResult(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
