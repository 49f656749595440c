package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Lifecycle operation metrics
	LifecycleOperations *prometheus.CounterVec
	LifecycleLatency    *prometheus.HistogramVec

	// Notification store metrics
	StoreOperations *prometheus.CounterVec
	StoreListSize   prometheus.Histogram

	// Auth metrics
	LoginAttempts *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		LifecycleOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lifecycle_operations_total",
			Help:      "Total number of notification lifecycle operations",
		}, []string{"operation", "status"}),
		LifecycleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lifecycle_operation_duration_seconds",
			Help:      "Duration of notification lifecycle operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operations_total",
			Help:      "Total number of notification store reads/writes",
		}, []string{"operation", "status"}),
		StoreListSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_list_size",
			Help:      "Per-user notification list sizes observed on write",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts",
		}, []string{"status"}),
	}
}
