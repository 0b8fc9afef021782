package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the refresh pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	UpsertedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all refresh metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "globaldata_refresh_runs_total",
			Help: "Refresh runs by outcome.",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "globaldata_refresh_duration_seconds",
			Help:    "End-to-end refresh run duration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		UpsertedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "globaldata_refresh_countries_upserted_total",
			Help: "Country rows written by refresh runs, split by insert vs update.",
		}, []string{"op"}),
	}
}

func (m *Metrics) recordRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) recordUpserts(inserted, updated int) {
	if m == nil {
		return
	}
	m.UpsertedTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.UpsertedTotal.WithLabelValues("updated").Add(float64(updated))
}
