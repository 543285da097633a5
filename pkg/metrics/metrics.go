package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Upstream API metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Medication alert worker metrics
	AlertsPublished prometheus.Counter
	AlertsFailed    prometheus.Counter
	AlertsSkipped   prometheus.Counter
	PollDuration    prometheus.Histogram
	PollErrors      prometheus.Counter
}

// NewMetrics creates and registers all application metrics on reg.
// A nil registerer means the default prometheus registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_requests_total",
			Help:      "Total number of calls to the school health API",
		}, []string{"resource", "method", "outcome"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of calls to the school health API",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"resource"}),

		AlertsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_alerts_published_total",
			Help:      "Total number of medication alerts published",
		}),
		AlertsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_alerts_failed_total",
			Help:      "Total number of medication alerts that could not be delivered",
		}),
		AlertsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_alerts_skipped_total",
			Help:      "Total number of alerts suppressed as duplicates",
		}),
		PollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_poll_duration_seconds",
			Help:      "Time spent on one medication alert poll",
			Buckets:   prometheus.DefBuckets,
		}),
		PollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "medication_poll_errors_total",
			Help:      "Total number of failed medication polls",
		}),
	}
}
