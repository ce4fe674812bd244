// Package metrics exposes Prometheus collectors for the sync server.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry when metrics are disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netviz"

// Metrics holds the server's collectors and the registry they belong to
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive   prometheus.Gauge
	messagesReceived *prometheus.CounterVec // by message type
	messagesFailed   *prometheus.CounterVec // by error kind
	mutationsApplied prometheus.Counter
	persistDuration  prometheus.Histogram
	framesBroadcast  prometheus.Counter
	clientsDropped   prometheus.Counter
	reloads          *prometheus.CounterVec // by result
}

// New creates the collectors on a private registry, with Go runtime metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of open WebSocket sessions",
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "messages_received_total",
			Help:      "Client frames received, by message type",
		}, []string{"type"}),
		messagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "messages_failed_total",
			Help:      "Client frames rejected, by error kind",
		}, []string{"kind"}),
		mutationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topology",
			Name:      "mutations_applied_total",
			Help:      "Device mutations applied and persisted",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "topology",
			Name:      "persist_duration_seconds",
			Help:      "Time spent saving the topology",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		framesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "frames_broadcast_total",
			Help:      "Frames queued to peer sessions",
		}),
		clientsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "slow_clients_dropped_total",
			Help:      "Sessions disconnected because their send buffer was full",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topology",
			Name:      "reloads_total",
			Help:      "External file reloads, by result (applied, unchanged, error)",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.sessionsActive,
		m.messagesReceived,
		m.messagesFailed,
		m.mutationsApplied,
		m.persistDuration,
		m.framesBroadcast,
		m.clientsDropped,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) MessageReceived(msgType string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(msgType).Inc()
}

func (m *Metrics) MessageFailed(kind string) {
	if m == nil {
		return
	}
	m.messagesFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) MutationsApplied(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mutationsApplied.Add(float64(n))
}

func (m *Metrics) ObservePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
}

func (m *Metrics) FramesBroadcast(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.framesBroadcast.Add(float64(n))
}

func (m *Metrics) ClientDropped() {
	if m == nil {
		return
	}
	m.clientsDropped.Inc()
}

func (m *Metrics) Reload(result string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
}
