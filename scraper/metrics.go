package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	RecordsExtractedTotal prometheus.Counter
	DetailsDroppedTotal   *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrascan_requests_total",
			Help: "Total HTTP requests issued against the portal.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patrascan_request_duration_seconds",
			Help:    "HTTP request latency for portal requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	recordsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "patrascan_records_extracted_total",
			Help: "Total number of customer records extracted from detail pages.",
		},
	)
	detailsDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrascan_details_dropped_total",
			Help: "Total number of detail pages dropped from a batch, by reason.",
		},
		[]string{"reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrascan_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, recordsExtracted, detailsDropped, errorsTotal)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		RecordsExtractedTotal: recordsExtracted,
		DetailsDroppedTotal:   detailsDropped,
		ErrorsTotal:           errorsTotal,
	}
}

// IncRequest increments the requests total counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncExtracted increments the extracted records counter.
func (m *Metrics) IncExtracted() {
	if m == nil {
		return
	}
	m.RecordsExtractedTotal.Inc()
}

// IncDropped increments the dropped-details counter for a reason label.
func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.DetailsDroppedTotal.WithLabelValues(reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
