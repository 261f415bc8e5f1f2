package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	first := LiveNotifications
	Init()
	if LiveNotifications != first {
		t.Error("Init re-registered metrics")
	}
	for name, c := range map[string]prometheus.Counter{
		"connect_attempts":     ConnectAttempts,
		"connect_failures":     ConnectFailures,
		"live_notifications":   LiveNotifications,
		"upload_notifications": UploadNotifications,
		"notify_failures":      NotifyFailures,
		"poll_cycles":          PollCycles,
		"poll_misses":          PollMisses,
		"transport_errors":     TransportErrors,
	} {
		if c == nil {
			t.Errorf("%s counter not initialized", name)
		}
	}
}

func TestUpdateConnectedGauge(t *testing.T) {
	Init()
	UpdateConnectedGauge(true)
	if got := gaugeValue(t, ConnectedGauge); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}
	UpdateConnectedGauge(false)
	if got := gaugeValue(t, ConnectedGauge); got != 0 {
		t.Errorf("connected gauge = %v, want 0", got)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}
