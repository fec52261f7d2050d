package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epa_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// download pipelines.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Remote fetch metrics.
	FetchAttempts *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram

	// Output metrics.
	RowsWritten  *prometheus.CounterVec // labels: source={aqs,airnow}
	RowsFiltered prometheus.Counter
	Tasks        *prometheus.CounterVec // labels: result={completed,skipped,failed}
	DaysFetched  prometheus.Counter

	// Geography metrics.
	SiteCache           *prometheus.CounterVec // labels: result={hit,miss}
	SpatialJoins        prometheus.Counter
	SpatialJoinDuration prometheus.Histogram
	UnresolvedDropped   prometheus.Counter

	QCViolations      *prometheus.CounterVec // labels: rule
	RecordsPublished  prometheus.Counter
	ArtifactsUploaded prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.FetchAttempts,
		m.FetchDuration,
		m.RowsWritten,
		m.RowsFiltered,
		m.Tasks,
		m.DaysFetched,
		m.SiteCache,
		m.SpatialJoins,
		m.SpatialJoinDuration,
		m.UnresolvedDropped,
		m.QCViolations,
		m.RecordsPublished,
		m.ArtifactsUploaded,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a download run is active, 0 otherwise.",
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Remote fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single remote fetch attempt.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows appended to output files by source.",
		}, []string{"source"}),
		RowsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Rows dropped by the parameter filter.",
		}),
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Download tasks by result.",
		}, []string{"result"}),
		DaysFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_fetched_total",
			Help:      "AirNow calendar days downloaded.",
		}),
		SiteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_cache_total",
			Help:      "Site geography lookups by result.",
		}, []string{"result"}),
		SpatialJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spatial_joins_total",
			Help:      "Point-in-polygon join batches executed.",
		}),
		SpatialJoinDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spatial_join_duration_seconds",
			Help:      "Duration of a spatial join batch.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		UnresolvedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_rows_dropped_total",
			Help:      "Rows dropped because their site has no geography.",
		}),
		QCViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qc_violations_total",
			Help:      "Quality check violations by rule.",
		}, []string{"rule"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Rows mirrored to Kafka.",
		}),
		ArtifactsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_uploaded_total",
			Help:      "Output files uploaded to object storage.",
		}),
	}
}
