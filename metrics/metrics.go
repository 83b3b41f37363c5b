// Package metrics records Prometheus metrics for credential fetches and
// generation calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters and histograms for chat turns.
type Metrics struct {
	tokenTotal        *prometheus.CounterVec
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	tokensGenerated   *prometheus.CounterVec
}

// New registers the collectors with reg, or the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "credential",
			Name:      "fetch_total",
			Help:      "Total credential fetches by outcome",
		}, []string{"outcome"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total generation calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dispatch",
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Latency of generation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		tokensGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "generation",
			Name:      "output_tokens_total",
			Help:      "Total tokens generated",
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.tokenTotal, m.generationTotal, m.generationLatency, m.tokensGenerated)
	return m
}

func (m *Metrics) ObserveToken(outcome string) {
	if m == nil {
		return
	}
	m.tokenTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeneration(provider, outcome string, seconds float64, tokens int) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(provider, outcome).Inc()
	m.generationLatency.WithLabelValues(provider).Observe(seconds)
	if tokens > 0 {
		m.tokensGenerated.WithLabelValues(provider).Add(float64(tokens))
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
