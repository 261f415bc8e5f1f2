// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ConnectAttempts     prometheus.Counter
	ConnectFailures     prometheus.Counter
	LiveNotifications   prometheus.Counter
	UploadNotifications prometheus.Counter
	NotifyFailures      prometheus.Counter
	PollCycles          prometheus.Counter
	PollMisses          prometheus.Counter
	TransportErrors     prometheus.Counter

	// Histograms (seconds)
	NotifyDuration prometheus.Observer
	PollDuration   prometheus.Observer

	// Gauges
	ConnectedGauge prometheus.Gauge // 1=connected,0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ConnectAttempts = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_connect_attempts_total", Help: "Number of live-connection attempts"})
		ConnectFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_connect_failures_total", Help: "Number of live-connection attempts that failed"})
		LiveNotifications = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_live_notifications_total", Help: "Number of stream-began notifications dispatched"})
		UploadNotifications = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_upload_notifications_total", Help: "Number of new-upload notifications dispatched"})
		NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_notify_failures_total", Help: "Number of notification deliveries that failed"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_poll_cycles_total", Help: "Number of upload poll cycles"})
		PollMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_poll_misses_total", Help: "Number of poll cycles that yielded no content id"})
		TransportErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_transport_errors_total", Help: "Number of mid-session transport errors on the live connection"})
		NotifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "herald_notify_duration_seconds", Help: "Notification delivery duration seconds", Buckets: prometheus.DefBuckets})
		PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "herald_poll_duration_seconds", Help: "Upload poll duration seconds", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "herald_live_connected", Help: "Live push connection up=1 down=0"})
	})
}

// UpdateConnectedGauge sets gauge to 1 if connected else 0.
func UpdateConnectedGauge(connected bool) {
	if ConnectedGauge != nil {
		if connected {
			ConnectedGauge.Set(1)
		} else {
			ConnectedGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
