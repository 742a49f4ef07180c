// Package metrics provides Prometheus metrics for connection lifecycle
// monitoring.
//
// Key metrics:
//   - state transition counts per service
//   - scheduled retry counts per service
//   - current state as a one-hot gauge per service
//   - time to reach ready after a dial begins
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paperdock/paperdock/internal/connection"
)

// ConnectionMetrics tracks connection lifecycle activity. All methods are
// nil-safe: calls on a nil *ConnectionMetrics are no-ops.
type ConnectionMetrics struct {
	// TransitionsTotal counts state transitions by destination state.
	TransitionsTotal *prometheus.CounterVec

	// RetriesTotal counts scheduled reconnect attempts.
	RetriesTotal *prometheus.CounterVec

	// StateGauge is a one-hot encoding of each service's current state.
	StateGauge *prometheus.GaugeVec

	// ConnectSeconds observes time from first dial to ready.
	ConnectSeconds *prometheus.HistogramVec

	// attempts remembers when each service started connecting.
	mu       sync.Mutex
	attempts map[string]time.Time
}

// NewConnectionMetrics creates and registers connection metrics with the
// given Prometheus registerer. If reg is nil, metrics are created but not
// registered (useful for testing).
func NewConnectionMetrics(reg prometheus.Registerer) *ConnectionMetrics {
	m := &ConnectionMetrics{
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperdock",
			Subsystem: "connections",
			Name:      "transitions_total",
			Help:      "Total number of connection state transitions",
		}, []string{"service", "state"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperdock",
			Subsystem: "connections",
			Name:      "retries_total",
			Help:      "Total number of scheduled reconnect attempts",
		}, []string{"service"}),
		StateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "paperdock",
			Subsystem: "connections",
			Name:      "state",
			Help:      "Current connection state (1 for the active state, 0 otherwise)",
		}, []string{"service", "state"}),
		ConnectSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paperdock",
			Subsystem: "connections",
			Name:      "connect_seconds",
			Help:      "Time from first dial to a ready connection",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		attempts: make(map[string]time.Time),
	}

	if reg != nil {
		reg.MustRegister(m.TransitionsTotal, m.RetriesTotal, m.StateGauge, m.ConnectSeconds)
	}

	return m
}

// Observe records a single lifecycle transition.
func (m *ConnectionMetrics) Observe(tr connection.Transition) {
	if m == nil {
		return
	}

	m.TransitionsTotal.WithLabelValues(tr.Name, string(tr.To)).Inc()

	for _, s := range connection.States {
		v := 0.0
		if s == tr.To {
			v = 1.0
		}
		m.StateGauge.WithLabelValues(tr.Name, string(s)).Set(v)
	}

	switch tr.To {
	case connection.StateConnecting:
		m.markAttempt(tr.Name, tr.At)
	case connection.StateReconnecting:
		m.RetriesTotal.WithLabelValues(tr.Name).Inc()
		m.markAttempt(tr.Name, tr.At)
	case connection.StateReady:
		if start, ok := m.takeAttempt(tr.Name); ok {
			m.ConnectSeconds.WithLabelValues(tr.Name).Observe(tr.At.Sub(start).Seconds())
		}
	}
}

// Bind subscribes the metrics to every lifecycle event of a manager.
func (m *ConnectionMetrics) Bind(mgr connection.Manager) {
	if m == nil {
		return
	}
	connection.OnAll(mgr, m.Observe)
}

// markAttempt records when a service began dialing. The earliest mark
// wins so retry loops measure from the first attempt.
func (m *ConnectionMetrics) markAttempt(service string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[service]; !ok {
		m.attempts[service] = at
	}
}

func (m *ConnectionMetrics) takeAttempt(service string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.attempts[service]
	if ok {
		delete(m.attempts, service)
	}
	return start, ok
}
