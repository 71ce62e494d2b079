package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the ingestion and query paths.
type Collector struct {
	ingestOutcomes  *prometheus.CounterVec
	alertsEmitted   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector and registers its metrics with the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glucose_readings_ingested_total",
			Help: "Reading ingestion attempts by outcome",
		}, []string{"outcome"}),
		alertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glucose_alerts_emitted_total",
			Help: "Alerts emitted by type",
		}, []string{"type"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glucose_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		c.ingestOutcomes,
		c.alertsEmitted,
		c.requestDuration,
	)

	return c
}

// RecordIngestOutcome counts one ingestion attempt with the given outcome
// label (accepted, validation_failed, ownership_failed, rate_limited,
// duplicate, storage_error).
func (c *Collector) RecordIngestOutcome(outcome string) {
	c.ingestOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAlertEmitted counts one emitted alert by type.
func (c *Collector) RecordAlertEmitted(alertType string) {
	c.alertsEmitted.WithLabelValues(alertType).Inc()
}

// RecordRequestDuration records one HTTP request observation.
func (c *Collector) RecordRequestDuration(route, status string, d time.Duration) {
	c.requestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
