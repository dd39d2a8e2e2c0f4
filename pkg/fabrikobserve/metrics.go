package fabrikobserve

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the pipeline reports to.
// A nil *Metrics is safe to call methods on: every method short-circuits,
// so instrumentation call sites never need a presence check.
type Metrics struct {
	registry *prometheus.Registry

	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	gatewayErrors   *prometheus.CounterVec

	adapterCalls    *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec

	assertionsRun    *prometheus.CounterVec
	scenariosRun     *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
}

// NewMetrics constructs a Metrics instance with a dedicated registry under
// the "fabrik" namespace.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.gatewayCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrik", Subsystem: "gateway", Name: "calls_total",
		Help: "Total number of LLM gateway Generate calls",
	}, []string{"provider"})

	m.gatewayDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabrik", Subsystem: "gateway", Name: "call_duration_seconds",
		Help: "LLM gateway Generate call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})

	m.gatewayErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrik", Subsystem: "gateway", Name: "errors_total",
		Help: "Total number of LLM gateway Generate errors",
	}, []string{"provider"})

	m.adapterCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrik", Subsystem: "adapter", Name: "sends_total",
		Help: "Total number of adapter Send calls to the agent under test",
	}, []string{"kind"})

	m.adapterDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabrik", Subsystem: "adapter", Name: "send_duration_seconds",
		Help: "Adapter Send call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"kind"})

	m.assertionsRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrik", Subsystem: "assert", Name: "assertions_total",
		Help: "Total number of assertions evaluated, by type and outcome",
	}, []string{"type", "passed"})

	m.scenariosRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabrik", Subsystem: "runner", Name: "scenarios_total",
		Help: "Total number of scenarios run, by outcome",
	}, []string{"passed"})

	m.scenarioDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabrik", Subsystem: "runner", Name: "scenario_duration_seconds",
		Help: "Scenario run duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"scenario"})

	m.registry.MustRegister(
		m.gatewayCalls, m.gatewayDuration, m.gatewayErrors,
		m.adapterCalls, m.adapterDuration,
		m.assertionsRun, m.scenariosRun, m.scenarioDuration,
	)
	return m
}

// RecordGatewayCall records one gateway.Generate call.
func (m *Metrics) RecordGatewayCall(provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(provider).Inc()
	m.gatewayDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if err != nil {
		m.gatewayErrors.WithLabelValues(provider).Inc()
	}
}

// RecordAdapterSend records one adapter.Send call.
func (m *Metrics) RecordAdapterSend(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.adapterCalls.WithLabelValues(kind).Inc()
	m.adapterDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAssertion records one recorded assertion outcome.
func (m *Metrics) RecordAssertion(assertionType string, passed bool) {
	if m == nil {
		return
	}
	m.assertionsRun.WithLabelValues(assertionType, boolLabel(passed)).Inc()
}

// RecordScenarioRun records one completed scenario run.
func (m *Metrics) RecordScenarioRun(scenarioName string, passed bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.scenariosRun.WithLabelValues(boolLabel(passed)).Inc()
	m.scenarioDuration.WithLabelValues(scenarioName).Observe(duration.Seconds())
}

// Handler exposes the registry over HTTP for Prometheus to scrape.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
