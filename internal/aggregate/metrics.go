package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	providerHealth   *prometheus.GaugeVec
}

// NewMetrics registers the engine metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketdata_provider_requests_total",
				Help: "Provider requests by outcome",
			},
			[]string{"provider", "outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketdata_fallback_responses_total",
				Help: "Responses served from the static fallback tier",
			},
			[]string{"operation"},
		),
		providerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketdata_provider_healthy",
				Help: "Advisory provider health flag (1=healthy)",
			},
			[]string{"provider"},
		),
	}

	reg.MustRegister(m.providerRequests, m.fallbacks, m.providerHealth)
	return m
}

func (m *Metrics) recordRequest(provider string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) recordHealth(provider string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.providerHealth.WithLabelValues(provider).Set(v)
}

func (m *Metrics) recordFallback(operation string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(operation).Inc()
}
