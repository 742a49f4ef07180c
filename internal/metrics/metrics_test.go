package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/paperdock/paperdock/internal/connection"
)

func TestConnectionMetrics_NilSafe(t *testing.T) {
	// All methods on a nil *ConnectionMetrics must not panic.
	var m *ConnectionMetrics

	m.Observe(connection.Transition{Name: "cache", To: connection.StateReady})
	m.Bind(nil)
}

func TestConnectionMetrics_Transitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConnectionMetrics(reg)

	now := time.Now()
	m.Observe(connection.Transition{Name: "cache", To: connection.StateConnecting, At: now})
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReady, At: now.Add(time.Second)})
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReconnecting, At: now.Add(2 * time.Second)})
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReconnecting, At: now.Add(3 * time.Second)})

	readyVal := counterValue(t, m.TransitionsTotal, "cache", string(connection.StateReady))
	if readyVal != 1 {
		t.Errorf("TransitionsTotal{state=ready} = %f, want 1", readyVal)
	}

	reconnVal := counterValue(t, m.TransitionsTotal, "cache", string(connection.StateReconnecting))
	if reconnVal != 2 {
		t.Errorf("TransitionsTotal{state=reconnecting} = %f, want 2", reconnVal)
	}

	retriesVal := counterValue(t, m.RetriesTotal, "cache")
	if retriesVal != 2 {
		t.Errorf("RetriesTotal = %f, want 2", retriesVal)
	}
}

func TestConnectionMetrics_StateGaugeOneHot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConnectionMetrics(reg)

	m.Observe(connection.Transition{Name: "documents", To: connection.StateConnecting, At: time.Now()})
	m.Observe(connection.Transition{Name: "documents", To: connection.StateReady, At: time.Now()})

	for _, s := range connection.States {
		want := 0.0
		if s == connection.StateReady {
			want = 1.0
		}
		got := gaugeValue(t, m.StateGauge, "documents", string(s))
		if got != want {
			t.Errorf("StateGauge{state=%s} = %f, want %f", s, got, want)
		}
	}
}

func TestConnectionMetrics_ConnectSeconds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConnectionMetrics(reg)

	start := time.Now()
	m.Observe(connection.Transition{Name: "cache", To: connection.StateConnecting, At: start})
	// A failed attempt must not reset the measurement start.
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReconnecting, At: start.Add(time.Second)})
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReady, At: start.Add(2 * time.Second)})

	count, sum := histogramValue(t, m.ConnectSeconds, "cache")
	if count != 1 {
		t.Errorf("ConnectSeconds count = %d, want 1", count)
	}
	if sum < 1.9 || sum > 2.1 {
		t.Errorf("ConnectSeconds sum = %f, want ~2.0", sum)
	}

	// A later ready without a preceding attempt records nothing new.
	m.Observe(connection.Transition{Name: "cache", To: connection.StateReady, At: start.Add(3 * time.Second)})
	count, _ = histogramValue(t, m.ConnectSeconds, "cache")
	if count != 1 {
		t.Errorf("ConnectSeconds count after bare ready = %d, want 1", count)
	}
}

// counterValue extracts the value from a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var metric io_prometheus_client.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

// gaugeValue extracts the value from a GaugeVec for the given labels.
func gaugeValue(t *testing.T, gv *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	gauge, err := gv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var metric io_prometheus_client.Metric
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}

// histogramValue extracts the sample count and sum from a HistogramVec.
func histogramValue(t *testing.T, hv *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	t.Helper()
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var metric io_prometheus_client.Metric
	if err := obs.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return metric.GetHistogram().GetSampleCount(), metric.GetHistogram().GetSampleSum()
}
