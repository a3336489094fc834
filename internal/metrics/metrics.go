// Package metrics exposes Prometheus collectors for the monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the divergence monitor.
// Collectors live on a private registry so tests can create many instances.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec   // labels: instrument, result=ok|insufficient|error
	CycleDuration      *prometheus.HistogramVec // labels: instrument
	FetchErrors        *prometheus.CounterVec   // labels: instrument, reason=provider|malformed
	AlertsTotal        *prometheus.CounterVec   // labels: instrument, kind
	SinkFailures       *prometheus.CounterVec   // labels: sink
	Oscillator         *prometheus.GaugeVec     // labels: instrument
	LivePrice          *prometheus.GaugeVec     // labels: instrument
	ConsecutiveFailure *prometheus.GaugeVec     // labels: instrument
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cycles_total",
			Help: "Evaluation cycles by outcome",
		}, []string{"instrument", "result"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Fetch plus evaluation latency per cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"instrument"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_errors_total",
			Help: "Market data failures by reason",
		}, []string{"instrument", "reason"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Alerts emitted by the throttler",
		}, []string{"instrument", "kind"}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_sink_failures_total",
			Help: "Alert deliveries that failed, by sink",
		}, []string{"sink"}),
		Oscillator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_rsi",
			Help: "Most recent oscillator value",
		}, []string{"instrument"}),
		LivePrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_live_price",
			Help: "Most recent live reference price",
		}, []string{"instrument"}),
		ConsecutiveFailure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_consecutive_failures",
			Help: "Current run of failed cycles per instrument",
		}, []string{"instrument"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CyclesTotal,
		m.CycleDuration,
		m.FetchErrors,
		m.AlertsTotal,
		m.SinkFailures,
		m.Oscillator,
		m.LivePrice,
		m.ConsecutiveFailure,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
