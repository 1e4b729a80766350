package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for pipeline runs and table
// serving. A single instance is shared by the runner and the HTTP layer.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	TableRows     *prometheus.GaugeVec
	TableRequests *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxipulse",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxipulse",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
		TableRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "taxipulse",
			Name:      "table_rows",
			Help:      "Row count of each persisted output table after the last replace.",
		}, []string{"table"}),
		TableRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxipulse",
			Name:      "table_requests_total",
			Help:      "Read requests served per output table.",
		}, []string{"table", "status"}),
	}
}

// NewDefaultMetrics registers on the default Prometheus registry.
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}
