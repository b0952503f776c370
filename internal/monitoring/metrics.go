// Package monitoring - metrics.go exposes engine metrics via Prometheus.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	LinesRead      prometheus.Counter
	ParseErrors    prometheus.Counter
	RecordsTracked prometheus.Counter
	HealthSkipped  prometheus.Counter

	Failovers        prometheus.Counter
	AlertsSent       *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec
	DeliveryFailures prometheus.Counter

	ErrorRatePercent prometheus.Gauge
	WindowFill       prometheus.Gauge
	Rotations        prometheus.Counter
}

// NewMetrics registers all collectors on reg. Passing nil uses a throwaway
// registry, which keeps tests free of global registration conflicts.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		LinesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_lines_read_total",
			Help: "Log lines read from the tailed source.",
		}),
		ParseErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_parse_errors_total",
			Help: "Log lines skipped because they could not be parsed.",
		}),
		RecordsTracked: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_records_tracked_total",
			Help: "Parsed records fed into the rolling window.",
		}),
		HealthSkipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_health_checks_skipped_total",
			Help: "Records ignored because they hit a health-check endpoint.",
		}),
		Failovers: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_failovers_detected_total",
			Help: "Serving-pool transitions observed in the log stream.",
		}),
		AlertsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poolwatch_alerts_sent_total",
			Help: "Alerts delivered to the webhook, by kind.",
		}, []string{"kind"}),
		AlertsSuppressed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poolwatch_alerts_suppressed_total",
			Help: "Alert candidates not delivered, by kind and reason.",
		}, []string{"kind", "reason"}), // reasons: cooldown, maintenance
		DeliveryFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_delivery_failures_total",
			Help: "Webhook deliveries that exhausted their retry budget.",
		}),
		ErrorRatePercent: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "poolwatch_error_rate_percent",
			Help: "Current rolling-window error rate.",
		}),
		WindowFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "poolwatch_window_fill",
			Help: "Records currently held in the rolling window.",
		}),
		Rotations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_log_rotations_total",
			Help: "Times the tailed log file was rotated or truncated.",
		}),
	}
}
