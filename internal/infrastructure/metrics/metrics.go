package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session service
type Metrics struct {
	// Connection pool metrics
	PooledConnections prometheus.Gauge
	PoolStarts        prometheus.Counter
	PoolStartErrors   prometheus.Counter
	PoolCloseErrors   prometheus.Counter

	// Session lifecycle metrics
	LifecycleOutcomes *prometheus.CounterVec
	FloodWaits        prometheus.Counter
	FloodWaitSeconds  prometheus.Histogram

	// Event pipeline metrics
	EventsReceived     prometheus.Counter
	EventsPublished    prometheus.Counter
	EventPublishErrors *prometheus.CounterVec
	EventPublishTime   prometheus.Histogram

	// Relay metrics
	ActiveRelays   prometheus.Gauge
	RelayFrames    *prometheus.CounterVec
	RelayFailures  *prometheus.CounterVec
	RelayDurations prometheus.Histogram
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

// NewMetrics creates and registers every collector. Call it once per registry.
func NewMetrics() *Metrics {
	return &Metrics{
		PooledConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "session_service_pooled_connections",
			Help: "Number of live connections in the pool",
		}),
		PoolStarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_pool_starts_total",
			Help: "Total number of connections started by the pool",
		}),
		PoolStartErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_pool_start_errors_total",
			Help: "Total number of failed connection starts",
		}),
		PoolCloseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_pool_close_errors_total",
			Help: "Total number of failed disconnects",
		}),

		LifecycleOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_service_lifecycle_outcomes_total",
				Help: "Session lifecycle results by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		FloodWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_flood_waits_total",
			Help: "Total number of flood wait responses from telegram",
		}),
		FloodWaitSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_service_flood_wait_seconds",
			Help:    "Flood wait durations imposed by telegram",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 86400},
		}),

		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_events_received_total",
			Help: "Total number of inbound message notifications",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "session_service_events_published_total",
			Help: "Total number of integration events handed to the broker",
		}),
		EventPublishErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_service_event_publish_errors_total",
				Help: "Total number of integration event publish failures",
			},
			[]string{"error_type"},
		),
		EventPublishTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_service_event_publish_duration_seconds",
			Help:    "Duration of publishing one batch of events",
			Buckets: prometheus.DefBuckets,
		}),

		ActiveRelays: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "session_service_active_relays",
			Help: "Number of relay pairings currently open",
		}),
		RelayFrames: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_service_relay_frames_total",
				Help: "Frames forwarded by relays by direction",
			},
			[]string{"direction"},
		),
		RelayFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_service_relay_failures_total",
				Help: "Relay pairings that ended in failure by reason",
			},
			[]string{"reason"},
		),
		RelayDurations: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_service_relay_duration_seconds",
			Help:    "Lifetime of relay pairings",
			Buckets: []float64{1, 10, 60, 300, 1800, 3600},
		}),
	}
}

// SetPooledConnections updates the pool size gauge
func (m *Metrics) SetPooledConnections(n int) {
	m.PooledConnections.Set(float64(n))
}

// RecordPoolStart records a connection start attempt
func (m *Metrics) RecordPoolStart(err error) {
	if err != nil {
		m.PoolStartErrors.Inc()
		return
	}
	m.PoolStarts.Inc()
}

// RecordPoolCloseError records a failed disconnect
func (m *Metrics) RecordPoolCloseError() {
	m.PoolCloseErrors.Inc()
}

// RecordLifecycle records the outcome of a lifecycle operation
func (m *Metrics) RecordLifecycle(operation, outcome string) {
	m.LifecycleOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordFloodWait records a provider imposed cooldown
func (m *Metrics) RecordFloodWait(seconds int) {
	m.FloodWaits.Inc()
	m.FloodWaitSeconds.Observe(float64(seconds))
}

// RecordEventReceived records one inbound notification
func (m *Metrics) RecordEventReceived() {
	m.EventsReceived.Inc()
}

// RecordEventsPublished records a published batch
func (m *Metrics) RecordEventsPublished(count int, duration float64) {
	if count > 0 {
		m.EventsPublished.Add(float64(count))
	}
	m.EventPublishTime.Observe(duration)
}

// RecordPublishError records a failed publish
func (m *Metrics) RecordPublishError(errorType string) {
	m.EventPublishErrors.WithLabelValues(errorType).Inc()
}

// RelayOpened increments the active relay gauge
func (m *Metrics) RelayOpened() {
	m.ActiveRelays.Inc()
}

// RelayClosed decrements the active relay gauge and records the lifetime
func (m *Metrics) RelayClosed(duration float64) {
	m.ActiveRelays.Dec()
	m.RelayDurations.Observe(duration)
}

// RecordRelayFrame records a forwarded frame
func (m *Metrics) RecordRelayFrame(direction string) {
	m.RelayFrames.WithLabelValues(direction).Inc()
}

// RecordRelayFailure records a relay that ended in failure
func (m *Metrics) RecordRelayFailure(reason string) {
	m.RelayFailures.WithLabelValues(reason).Inc()
}
