// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tablereservation_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tablereservation_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	admissionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tablereservation_admission_outcomes_total",
		Help: "Reservation admission and cancellation outcomes by reason",
	}, []string{"operation", "outcome"})

	admissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tablereservation_admission_duration_seconds",
		Help:    "Duration of admission and cancellation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tablereservation_events_published_total",
		Help: "Reservation events handed to the broker",
	}, []string{"type", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAdmission records one admit or cancel attempt. outcome is
// "committed" on success or the rejection reason otherwise.
func ObserveAdmission(operation, outcome string, duration time.Duration) {
	admissionOutcomes.WithLabelValues(operation, outcome).Inc()
	admissionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveEventPublish counts a publish attempt for an event type.
func ObserveEventPublish(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(eventType, result).Inc()
}
