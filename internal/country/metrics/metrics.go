package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the country read path.
type Metrics struct {
	SummaryCacheHits   prometheus.Counter
	SummaryCacheMisses prometheus.Counter
}

// New creates and registers all country metrics.
func New() *Metrics {
	return &Metrics{
		SummaryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "globaldata_summary_cache_hits_total",
			Help: "Summary requests served from the cache.",
		}),
		SummaryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "globaldata_summary_cache_misses_total",
			Help: "Summary requests computed from the store.",
		}),
	}
}

// RecordCacheHit increments the summary cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.SummaryCacheHits.Inc()
}

// RecordCacheMiss increments the summary cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.SummaryCacheMisses.Inc()
}
