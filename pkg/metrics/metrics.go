package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event log metrics
	EventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_events_appended_total",
			Help: "Total number of domain events appended, by event type",
		},
		[]string{"event_type"},
	)

	AppendConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_append_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts observed by the decision engine",
		},
	)

	AppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_append_duration_seconds",
			Help:    "Time taken to append events to the event log",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Update saga metrics
	SagaCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_saga_cycle_duration_seconds",
			Help:    "Time from UpdateStarted until every fan-out task for the run has completed",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SagasStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_sagas_started_total",
			Help: "Total number of update-weather sagas started",
		},
	)

	LocationUpdateFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_location_update_failures_total",
			Help: "Total number of per-zone UpdateLocationFailed events, by zone",
		},
		[]string{"zone"},
	)

	// Projection metrics
	ProjectionLagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_projection_lag_seconds",
			Help: "Age of the last event applied by a projection listener",
		},
		[]string{"projection"},
	)

	ProjectionCheckpoint = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_projection_checkpoint",
			Help: "Last committed checkpoint sequence number for a projection listener",
		},
		[]string{"projection"},
	)

	// External provider metrics
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_provider_calls_total",
			Help: "Total number of external weather-provider calls, by capability and outcome",
		},
		[]string{"capability", "outcome"},
	)

	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_provider_call_duration_seconds",
			Help:    "External weather-provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"capability"},
	)

	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_provider_retries_total",
			Help: "Total number of retried external weather-provider calls, by capability",
		},
		[]string{"capability"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsAppendedTotal,
		AppendConflictsTotal,
		AppendDuration,
		SagaCycleDuration,
		SagasStartedTotal,
		LocationUpdateFailuresTotal,
		ProjectionLagSeconds,
		ProjectionCheckpoint,
		ProviderCallsTotal,
		ProviderCallDuration,
		ProviderRetriesTotal,
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
