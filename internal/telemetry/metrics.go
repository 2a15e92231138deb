// Package telemetry exposes bridge counters through a prometheus registry.
// The recorded dimensions mirror what the diagnostics endpoint reports:
// frame routing, command outcomes, buffer pressure, and host attachment.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one bridge instance. A nil *Metrics is
// valid and records nothing, so components can treat it as optional.
type Metrics struct {
	Registry *prometheus.Registry

	framesRouted    *prometheus.CounterVec
	framesMalformed prometheus.Counter
	framesUnknown   prometheus.Counter
	commands        *prometheus.CounterVec
	logEvents       prometheus.Counter
	evictions       prometheus.Counter
	snapshotUpdates prometheus.Counter
	hostConnected   prometheus.Gauge
}

// Command outcome labels.
const (
	CommandOK           = "ok"
	CommandTimeout      = "timeout"
	CommandCompileError = "compile_error"
	CommandRuntimeError = "runtime_error"
	CommandTransport    = "transport"
	CommandRejected     = "rejected"
)

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		framesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_frames_routed_total",
			Help: "Inbound frames dispatched by discriminant.",
		}, []string{"type"}),
		framesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_malformed_total",
			Help: "Inbound frames that failed structural decode.",
		}),
		framesUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_unknown_total",
			Help: "Inbound frames with an unrecognized discriminant.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_commands_total",
			Help: "Remote command executions by outcome.",
		}, []string{"outcome"}),
		logEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_log_events_total",
			Help: "Log events accepted into the ring buffer.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_log_evictions_total",
			Help: "Ring buffer entries evicted to make room.",
		}),
		snapshotUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_snapshot_updates_total",
			Help: "Snapshot publications mirrored from the host.",
		}),
		hostConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_host_connected",
			Help: "1 while a host connection is attached.",
		}),
	}
	registry.MustRegister(
		m.framesRouted,
		m.framesMalformed,
		m.framesUnknown,
		m.commands,
		m.logEvents,
		m.evictions,
		m.snapshotUpdates,
		m.hostConnected,
	)
	return m
}

func (m *Metrics) FrameRouted(frameType string) {
	if m == nil {
		return
	}
	m.framesRouted.WithLabelValues(frameType).Inc()
}

func (m *Metrics) FrameMalformed() {
	if m == nil {
		return
	}
	m.framesMalformed.Inc()
}

func (m *Metrics) FrameUnknown() {
	if m == nil {
		return
	}
	m.framesUnknown.Inc()
}

func (m *Metrics) CommandFinished(outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LogEventAccepted(evicted bool) {
	if m == nil {
		return
	}
	m.logEvents.Inc()
	if evicted {
		m.evictions.Inc()
	}
}

func (m *Metrics) SnapshotMirrored() {
	if m == nil {
		return
	}
	m.snapshotUpdates.Inc()
}

func (m *Metrics) HostAttached(attached bool) {
	if m == nil {
		return
	}
	if attached {
		m.hostConnected.Set(1)
		return
	}
	m.hostConnected.Set(0)
}
