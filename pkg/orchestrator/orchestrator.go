// Package orchestrator is the Update Weather Saga's process manager:
// the PostCommit hook StartUpdate invokes once UpdateStarted has
// persisted, which fans work out across the zones in that run — two
// provider calls per zone (observation, forecast) plus one alert sweep
// that partitions the run's zones into alerted and unaffected before
// noting the global alerts-reviewed step.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/dmrolfs/weather-monitor/pkg/metrics"
	"github.com/dmrolfs/weather-monitor/pkg/noaa"
	"github.com/dmrolfs/weather-monitor/pkg/update"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Orchestrator owns the event store and provider client every saga run
// fans its work out against. Fan-out tasks are tracked on a shared
// errgroup.Group rather than per-run so a graceful shutdown can wait on
// every in-flight task regardless of which update started it.
type Orchestrator struct {
	store   eventlog.Store
	weather noaa.WeatherServices
	group   errgroup.Group
}

func New(store eventlog.Store, weather noaa.WeatherServices) *Orchestrator {
	return &Orchestrator{store: store, weather: weather}
}

// Wait blocks until every goroutine this orchestrator has fanned out is
// done. Intended for graceful shutdown and for tests that need the run to
// settle before asserting on it. Every fanned-out task swallows its own
// error (failures become UpdateLocationFailed commands), so Wait never
// returns a non-nil error itself -- the return value exists only to
// satisfy errgroup.Group's signature.
func (o *Orchestrator) Wait() error {
	return o.group.Wait()
}

// Hook extracts the zones StartUpdate persisted and launches this run's
// fan-out. Its signature matches update.PostCommit.
func (o *Orchestrator) Hook(ctx context.Context, updateID ids.UpdateID, persisted []eventlog.Event) {
	zones := zonesFromStarted(persisted)
	if len(zones) == 0 {
		return
	}
	o.Start(ctx, updateID, zones)
}

func zonesFromStarted(events []eventlog.Event) []ids.ZoneCode {
	for _, e := range events {
		if e.Type != update.EventUpdateStarted {
			continue
		}
		var payload update.UpdateStartedPayload
		if err := json.Unmarshal(e.Payload, &payload); err == nil {
			return payload.Zones
		}
	}
	return nil
}

// Start launches the saga's concurrent fan-out: one observe and one
// forecast goroutine per zone, plus one alert sweep covering the whole
// run. Each goroutine notes its own failures back onto the saga rather
// than propagating an error anywhere — the saga must reach Finished
// even when a zone's update fails.
func (o *Orchestrator) Start(ctx context.Context, updateID ids.UpdateID, zones []ids.ZoneCode) {
	logger := log.WithUpdateID(string(updateID))

	var run sync.WaitGroup
	for _, z := range zones {
		z := z
		run.Add(2)
		o.group.Go(func() error {
			defer run.Done()
			o.observeZone(ctx, updateID, z, logger)
			return nil
		})
		o.group.Go(func() error {
			defer run.Done()
			o.forecastZone(ctx, updateID, z, logger)
			return nil
		})
	}

	run.Add(1)
	o.group.Go(func() error {
		defer run.Done()
		o.sweepAlerts(ctx, updateID, zones, logger)
		return nil
	})

	timer := metrics.NewTimer()
	o.group.Go(func() error {
		run.Wait()
		timer.ObserveDuration(metrics.SagaCycleDuration)
		return nil
	})
}

// canceled reports whether err is (or wraps) the shutdown signal's
// cancellation -- the orchestrator must not turn a shutdown-canceled
// upstream call into an UpdateLocationFailed command. A request
// deadline (the HTTP client's per-request timeout) is a provider
// failure like any other: a hung provider produces retries, then
// UpdateLocationFailed.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func (o *Orchestrator) observeZone(ctx context.Context, updateID ids.UpdateID, z ids.ZoneCode, logger zerolog.Logger) {
	frame, err := o.weather.ZoneObservation(ctx, z)
	if err != nil {
		if canceled(err) {
			logger.Debug().Str("zone", string(z)).Msg("zone observation canceled by shutdown")
			return
		}
		logger.Warn().Err(err).Str("zone", string(z)).Msg("zone observation failed")
		o.noteFailure(ctx, updateID, z, err.Error(), logger)
		return
	}
	if _, err := zone.NoteObservation(ctx, o.store, z, updateID, frame); err != nil {
		logger.Warn().Err(err).Str("zone", string(z)).Msg("failed to record zone observation")
	}
}

func (o *Orchestrator) forecastZone(ctx context.Context, updateID ids.UpdateID, z ids.ZoneCode, logger zerolog.Logger) {
	forecast, err := o.weather.ZoneForecast(ctx, ids.ZoneTypeForecast, z)
	if err != nil {
		if canceled(err) {
			logger.Debug().Str("zone", string(z)).Msg("zone forecast canceled by shutdown")
			return
		}
		logger.Warn().Err(err).Str("zone", string(z)).Msg("zone forecast failed")
		o.noteFailure(ctx, updateID, z, err.Error(), logger)
		return
	}
	if _, err := zone.NoteForecast(ctx, o.store, z, updateID, forecast); err != nil {
		logger.Warn().Err(err).Str("zone", string(z)).Msg("failed to record zone forecast")
	}
}

// sweepAlerts fetches the provider's active alert feed, partitions zones
// into alerted/unaffected, notes an alert (or its absence) for every
// zone, and finally notes alerts-reviewed for the run. A failure to
// fetch the feed at all aborts the sweep without noting alerts-reviewed;
// that run then never reaches Finished (later poll cycles start runs of
// their own under new update ids).
func (o *Orchestrator) sweepAlerts(ctx context.Context, updateID ids.UpdateID, zones []ids.ZoneCode, logger zerolog.Logger) {
	alerts, err := o.weather.ActiveAlerts(ctx)
	if err != nil {
		if canceled(err) {
			logger.Debug().Msg("active alerts fetch canceled by shutdown")
			return
		}
		logger.Warn().Err(err).Msg("failed to fetch active alerts -- ignoring this cycle")
		return
	}

	scope := make(map[ids.ZoneCode]struct{}, len(zones))
	for _, z := range zones {
		scope[z] = struct{}{}
	}

	alertedZones := make(map[ids.ZoneCode]struct{})
	for i := range alerts {
		alert := alerts[i]
		for _, raw := range alert.AffectedZones {
			_, z, err := ids.ParseZoneCode(raw)
			if err != nil {
				continue
			}
			if _, inScope := scope[z]; !inScope {
				continue
			}
			alertedZones[z] = struct{}{}
			if _, err := zone.NoteAlert(ctx, o.store, z, updateID, &alert); err != nil {
				logger.Warn().Err(err).Str("zone", string(z)).Msg("failed to note zone alert")
				o.noteFailure(ctx, updateID, z, err.Error(), logger)
			}
		}
	}

	for z := range scope {
		if _, alerted := alertedZones[z]; alerted {
			continue
		}
		if _, err := zone.NoteAlert(ctx, o.store, z, updateID, nil); err != nil {
			logger.Warn().Err(err).Str("zone", string(z)).Msg("failed to clear zone alert")
			o.noteFailure(ctx, updateID, z, err.Error(), logger)
		}
	}

	if _, err := update.NoteAlertsReviewed(ctx, o.store, updateID); err != nil {
		logger.Warn().Err(err).Msg("failed to note alerts reviewed")
	}
}

func (o *Orchestrator) noteFailure(ctx context.Context, updateID ids.UpdateID, z ids.ZoneCode, cause string, logger zerolog.Logger) {
	metrics.LocationUpdateFailuresTotal.WithLabelValues(string(z)).Inc()
	if _, err := update.NoteLocationUpdateFailure(ctx, o.store, updateID, z, cause); err != nil {
		logger.Warn().Err(err).Str("zone", string(z)).Msg("failed to note location update failure")
	}
}
