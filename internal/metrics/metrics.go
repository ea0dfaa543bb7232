// Package metrics provides Prometheus instrumentation for the MCTP core.
// It is purely additive: no metrics method ever changes protocol behavior,
// and every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the small set of counters/gauges this emulator exposes.
// All fields use the mctp_ prefix to distinguish them from other processes
// sharing a scrape target.
type Metrics struct {
	FlowTableSize        prometheus.Gauge
	FramesDroppedTotal   *prometheus.CounterVec
	DiscoveryAttempts    prometheus.Counter
	DiscoveryFailures    prometheus.Counter
	RequestsServedTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers metrics against reg. Pass nil to build
// an unregistered (but still usable) Metrics, which is useful for tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mctp_flow_table_size",
			Help: "Current number of in-flight entries in the flow table.",
		}),
		FramesDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mctp_frames_dropped_total",
				Help: "Total inbound frames dropped by the demultiplexer, by reason.",
			},
			[]string{"reason"},
		),
		DiscoveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mctp_discovery_attempts_total",
			Help: "Total bus-owner discovery attempts started.",
		}),
		DiscoveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mctp_discovery_failures_total",
			Help: "Total bus-owner discovery attempts that aborted with an error.",
		}),
		RequestsServedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mctp_requests_served_total",
				Help: "Total control requests served by the responder, by command and completion.",
			},
			[]string{"command", "completion"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.FlowTableSize,
			m.FramesDroppedTotal,
			m.DiscoveryAttempts,
			m.DiscoveryFailures,
			m.RequestsServedTotal,
		)
	}
	return m
}

// SetFlowTableSize records the flow table's current size.
func (m *Metrics) SetFlowTableSize(n int) {
	if m == nil {
		return
	}
	m.FlowTableSize.Set(float64(n))
}

// RecordFrameDropped increments the drop counter for the given reason
// ("not_mctp", "malformed_transport_header", "no_responder", "responder_error").
func (m *Metrics) RecordFrameDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordDiscoveryAttempt increments the discovery attempt counter.
func (m *Metrics) RecordDiscoveryAttempt() {
	if m == nil {
		return
	}
	m.DiscoveryAttempts.Inc()
}

// RecordDiscoveryFailure increments the discovery failure counter.
func (m *Metrics) RecordDiscoveryFailure() {
	if m == nil {
		return
	}
	m.DiscoveryFailures.Inc()
}

// RecordRequestServed increments the per-command, per-completion-code
// request counter.
func (m *Metrics) RecordRequestServed(command, completion string) {
	if m == nil {
		return
	}
	m.RequestsServedTotal.WithLabelValues(command, completion).Inc()
}

// Handler returns the HTTP handler the cmd/mctp-emu run subcommand serves
// at /metrics when metrics are enabled.
func Handler() http.Handler {
	return promhttp.Handler()
}
