package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	FeaturesRead       prometheus.Counter
	RecordsTransformed prometheus.Counter
	RecordsSkipped     prometheus.Counter
	TransformErrors    prometheus.Counter
	RecordsUpserted    prometheus.Counter
	UpsertFailures     prometheus.Counter
	PipelineRunning    prometheus.Gauge

	BatchDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeaturesRead,
		m.RecordsTransformed,
		m.RecordsSkipped,
		m.TransformErrors,
		m.RecordsUpserted,
		m.UpsertFailures,
		m.PipelineRunning,
		m.BatchDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "features_read_total",
			Help:      "Total raw features read from all sources.",
		}),
		RecordsTransformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "records_transformed_total",
			Help:      "Total features transformed into canonical records.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "records_skipped_total",
			Help:      "Total features rejected by domain filters.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "transform_errors_total",
			Help:      "Total unexpected transform failures.",
		}),
		RecordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "records_upserted_total",
			Help:      "Total canonical records upserted into the datastore.",
		}),
		UpsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heritage_etl",
			Name:      "upsert_failures_total",
			Help:      "Total per-record upsert failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "heritage_etl",
			Name:      "pipeline_running",
			Help:      "1 while an ingestion run is active, 0 otherwise.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heritage_etl",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one persistence batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
