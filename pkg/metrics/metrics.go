package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Record store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Capture session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsReset   prometheus.Counter

	// Note generation metrics
	GenerationsStarted   prometheus.Counter
	GenerationsCompleted prometheus.Counter
	GenerationsCancelled prometheus.Counter

	// Sign-off metrics
	SignOffs       *prometheus.CounterVec
	SignOffLatency prometheus.Histogram

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsFailed    prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operations_total",
			Help:      "Total number of record store operations",
		}, []string{"collection", "operation", "status"}),
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of record store operations",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"collection", "operation"}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capture_sessions_active",
			Help:      "Current number of live capture sessions",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capture_sessions_started_total",
			Help:      "Total number of capture sessions started",
		}),
		SessionsReset: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capture_sessions_reset_total",
			Help:      "Total number of capture sessions reset or abandoned",
		}),

		GenerationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "note_generations_started_total",
			Help:      "Total number of note generation jobs started",
		}),
		GenerationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "note_generations_completed_total",
			Help:      "Total number of note generation jobs that reached 100%",
		}),
		GenerationsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "note_generations_cancelled_total",
			Help:      "Total number of note generation jobs cancelled mid-flight",
		}),

		SignOffs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "note_signoffs_total",
			Help:      "Total number of sign-off transactions by outcome",
		}, []string{"outcome"}),
		SignOffLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "note_signoff_duration_seconds",
			Help:      "Time spent committing signed notes to the record store",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Total number of lifecycle events published",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_failed_total",
			Help:      "Total number of lifecycle events that failed to publish",
		}),
	}
}
