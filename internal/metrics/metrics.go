// Package metrics exposes Prometheus counters for captcha validation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded for every validation.
const (
	OutcomeDisabled     = "disabled"
	OutcomeBypassed     = "bypassed"
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeHostMismatch = "host_mismatch"
	OutcomeFailOpen     = "fail_open"
)

// Metrics holds the collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	Validations   *prometheus.CounterVec
	VerifierCalls *prometheus.CounterVec
	VerifyLatency prometheus.Histogram
}

// New creates a registry with the captcha collectors and the standard Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recaptcha",
			Name:      "validations_total",
			Help:      "Captcha validations by outcome.",
		}, []string{"outcome"}),
		VerifierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recaptcha",
			Name:      "verifier_calls_total",
			Help:      "Calls to the verification service by result.",
		}, []string{"result"}),
		VerifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recaptcha",
			Name:      "verify_duration_seconds",
			Help:      "Latency of verification service calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
	reg.MustRegister(
		m.Validations,
		m.VerifierCalls,
		m.VerifyLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveValidation counts one validation outcome. Safe on a nil receiver.
func (m *Metrics) ObserveValidation(outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}

// ObserveVerifierCall records one call to the verification service.
func (m *Metrics) ObserveVerifierCall(result string, seconds float64) {
	if m == nil {
		return
	}
	m.VerifierCalls.WithLabelValues(result).Inc()
	m.VerifyLatency.Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
