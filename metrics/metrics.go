// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SignRequests          *prometheus.CounterVec
	DocumentsCompleted    prometheus.Counter
	CertificatesGenerated *prometheus.CounterVec
	Verifications         *prometheus.CounterVec
	SignDuration          prometheus.Histogram
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SignRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_sign_requests_total",
			Help: "Sign requests by outcome.",
		}, []string{"outcome"}),
		DocumentsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esign_documents_completed_total",
			Help: "Documents that received their last signature.",
		}),
		CertificatesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_certificates_generated_total",
			Help: "Completion certificates by outcome.",
		}, []string{"outcome"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_verifications_total",
			Help: "Verification lookups by result.",
		}, []string{"result"}),
		SignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "esign_sign_duration_seconds",
			Help:    "Time spent handling a sign request.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.SignRequests,
		m.DocumentsCompleted,
		m.CertificatesGenerated,
		m.Verifications,
		m.SignDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSign records one sign request. A nil receiver is a no-op so
// components can run without metrics.
func (m *Metrics) ObserveSign(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SignRequests.WithLabelValues(outcome).Inc()
	m.SignDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeCompleted {
		m.DocumentsCompleted.Inc()
	}
}

// ObserveCertificate records one certificate generation.
func (m *Metrics) ObserveCertificate(outcome string) {
	if m == nil {
		return
	}
	m.CertificatesGenerated.WithLabelValues(outcome).Inc()
}

// ObserveVerification records one verification lookup.
func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}
