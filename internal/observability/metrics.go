package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "issue_reports"

// Metrics holds the Prometheus counters, histograms, and gauges for the report service.
type Metrics struct {
	// Report store metrics.
	ReportsCreated      prometheus.Counter
	StatusUpdates       *prometheus.CounterVec // labels: status
	ReportsDeleted      prometheus.Counter
	StorageErrors       *prometheus.CounterVec // labels: op
	ImagesStored        prometheus.Counter
	ImagesRejected      prometheus.Counter
	BlobCleanupFailures prometheus.Counter

	// HTTP metrics.
	HTTPRequests        *prometheus.CounterVec   // labels: method, route, code
	HTTPRequestDuration *prometheus.HistogramVec // labels: route

	// Event dispatch metrics.
	EventsPublished    prometheus.Counter
	EventsDropped      prometheus.Counter
	EventPublishErrors prometheus.Counter
	EventBatchSize     prometheus.Histogram
	DispatcherRunning  prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_created_total",
			Help:      "Total reports persisted.",
		}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Status changes by target status.",
		}, []string{"status"}),
		ReportsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_deleted_total",
			Help:      "Total reports removed.",
		}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Repository and blob failures by store operation.",
		}, []string{"op"}),
		ImagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_stored_total",
			Help:      "Uploaded images accepted by the blob sink.",
		}),
		ImagesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_rejected_total",
			Help:      "Uploads dropped for a disallowed type or size.",
		}),
		BlobCleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_cleanup_failures_total",
			Help:      "Blob removals that failed and may have left an orphan.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Report lifecycle events delivered to the broker.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Report lifecycle events dropped because the buffer was full.",
		}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Failed batch publish attempts.",
		}),
		EventBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_batch_size",
			Help:      "Number of events per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		DispatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_dispatcher_running",
			Help:      "1 when the event dispatcher is active, 0 when shut down.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when a geocoding provider is configured, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReportsCreated,
		m.StatusUpdates,
		m.ReportsDeleted,
		m.StorageErrors,
		m.ImagesStored,
		m.ImagesRejected,
		m.BlobCleanupFailures,
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.EventsPublished,
		m.EventsDropped,
		m.EventPublishErrors,
		m.EventBatchSize,
		m.DispatcherRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
