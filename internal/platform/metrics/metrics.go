package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes, used as the label value on LookupsTotal.
const (
	LookupOutcomeFound     = "found"
	LookupOutcomeEmpty     = "empty"
	LookupOutcomeUpstream  = "upstream_error"
	LookupOutcomeTransport = "transport_error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LookupsTotal         *prometheus.CounterVec
	LookupDuration       prometheus.Histogram
	RecordsCommitted     prometheus.Counter
	DuplicatesSuppressed prometheus.Counter
	SessionsStarted      prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		LookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "adresboek_lookups_total",
			Help: "Address lookups by outcome",
		}, []string{"outcome"}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adresboek_lookup_duration_seconds",
			Help:    "Latency of lookup gateway calls",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adresboek_records_committed_total",
			Help: "Records committed to the address book",
		}),
		DuplicatesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adresboek_duplicate_records_suppressed_total",
			Help: "Add calls suppressed because the identifier already existed",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adresboek_sessions_started_total",
			Help: "Workflow sessions created",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adresboek_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveLookup records one gateway call.
func (m *Metrics) ObserveLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
	m.LookupDuration.Observe(d.Seconds())
}

// IncrementRecordsCommitted increments the committed-records counter by 1.
func (m *Metrics) IncrementRecordsCommitted() {
	if m == nil {
		return
	}
	m.RecordsCommitted.Inc()
}

// IncrementDuplicatesSuppressed increments the suppressed-duplicates counter by 1.
func (m *Metrics) IncrementDuplicatesSuppressed() {
	if m == nil {
		return
	}
	m.DuplicatesSuppressed.Inc()
}

// IncrementSessionsStarted increments the sessions counter by 1.
func (m *Metrics) IncrementSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}
