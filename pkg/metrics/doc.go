/*
Package metrics provides Prometheus metrics collection and exposition for
the weather monitor.

The metrics package registers every counter/gauge/histogram at package
init and exposes them over the standard promhttp handler, covering
this domain's own suspension points: event append, the saga cycle,
projection catch-up, and the external provider call.

# Naming

All metrics carry the weather_ prefix:

  - weather_events_appended_total{event_type} — counter, incremented by
    the decision engine after a successful append.
  - weather_append_conflicts_total — counter, incremented on every
    optimistic-concurrency retry.
  - weather_append_duration_seconds — histogram, append() latency.
  - weather_saga_cycle_duration_seconds — histogram, wall-clock from
    the orchestrator launching a run's fan-out to every one of that
    run's fan-out tasks having returned.
  - weather_sagas_started_total — counter.
  - weather_location_update_failures_total{zone} — counter, one increment
    per UpdateLocationFailed.
  - weather_projection_lag_seconds{projection} — gauge, age of the most
    recently applied event for a projection listener.
  - weather_projection_checkpoint{projection} — gauge, last committed
    checkpoint sequence number.
  - weather_provider_calls_total{capability,outcome} — counter, one of
    zone_observation/zone_forecast/active_alerts by success/failure.
  - weather_provider_call_duration_seconds{capability} — histogram.
  - weather_provider_retries_total{capability} — counter.

# Usage

	import "github.com/dmrolfs/weather-monitor/pkg/metrics"

	timer := metrics.NewTimer()
	events, err := store.Append(ctx, filter, version, newEvents)
	timer.ObserveDuration(metrics.AppendDuration)
	if err != nil {
		metrics.AppendConflictsTotal.Inc()
		return err
	}
	for _, e := range events {
		metrics.EventsAppendedTotal.WithLabelValues(e.Type).Inc()
	}

The HTTP mux registers metrics.Handler() at /metrics for Prometheus to
scrape; see cmd/weatherd.

# Health

health.go implements a generic component health checker
(RegisterComponent/GetHealth/GetReadiness); its readiness check names
"eventlog" and "provider" as the critical components this service
cannot run without.
*/
package metrics
