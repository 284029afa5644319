package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/breaker"
)

// Dispatch outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeDownstreamError = "downstream_error"
	OutcomeRejected        = "rejected"
	OutcomeUnregistered    = "unregistered"
	OutcomeUnreachable     = "unreachable"
)

// Metrics collects dispatcher and breaker metrics on a private registry so
// every gateway (and every test) gets an isolated instance.
type Metrics struct {
	registry         *prometheus.Registry
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

// New creates a metrics instance with its own prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "dispatch_requests_total",
			Help:      "Outbound dispatch attempts by target and outcome.",
		}, []string{"target", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "dispatch_duration_seconds",
			Help:      "Outbound dispatch latency by target.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gateway",
			Name:      "breaker_state",
			Help:      "Circuit breaker state by target (0 closed, 1 open, 2 half-open).",
		}, []string{"target"}),
	}

	reg.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.breakerState,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveDispatch records one dispatch attempt.
func (m *Metrics) ObserveDispatch(target, outcome string, elapsed time.Duration) {
	m.dispatchTotal.WithLabelValues(target, outcome).Inc()
	m.dispatchDuration.WithLabelValues(target).Observe(elapsed.Seconds())
}

// SetBreakerState publishes the current breaker state for target.
func (m *Metrics) SetBreakerState(target string, state breaker.State) {
	m.breakerState.WithLabelValues(target).Set(float64(state))
}

// Handler serves the scrape endpoint for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}
