// Package command is the Command API facade: the single
// surface an HTTP layer (out of scope here) would call into. It wires
// together the registrar, zone, and update packages plus the
// MonitoredZonesView and ZoneWeatherProjection read models.
package command

import (
	"context"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/projections"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/dmrolfs/weather-monitor/pkg/update"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

// ZoneWeatherView is the fetch_zone_weather read model: the zone's
// current observation, forecast, and alert, however much of each is
// known.
type ZoneWeatherView struct {
	Zone     ids.ZoneCode
	Frame    *weather.Frame
	Forecast *weather.ZoneForecast
	Alert    *weather.Alert
}

// ZoneWeatherSource abstracts the read side fetch_zone_weather needs —
// satisfied by *projections.ZoneWeatherProjection in a Postgres
// deployment, or directly by the zone package's DeriveObservation/
// DeriveForecast/DeriveAlert against the event log for a BoltDB/in-memory
// deployment without a separate projection store.
type ZoneWeatherSource interface {
	FetchZoneWeather(ctx context.Context, z ids.ZoneCode) (*weather.Frame, *weather.ZoneForecast, *weather.Alert, error)
}

// UpdateStatusSource abstracts the read side fetch_update_status needs —
// satisfied by *projections.UpdateWeatherHistoryProjection in a Postgres
// deployment, reading the materialized update_weather_history table
// instead of replaying the event log.
type UpdateStatusSource interface {
	FetchStatus(ctx context.Context, updateID ids.UpdateID) (update.State, bool, error)
}

// API is the Command API facade. UpdateHook is the saga's PostCommit
// hook; a nil UpdateHook is valid (commands still append events,
// they just don't trigger provider fan-out — useful for tests).
// UpdateStatus is nil in a BoltDB/in-memory deployment: FetchUpdateStatus
// falls back to replaying the event log directly in that case.
type API struct {
	Store        eventlog.Store
	Zones        *projections.MonitoredZonesView
	ZoneWeather  ZoneWeatherSource
	UpdateStatus UpdateStatusSource
	UpdateHook   update.PostCommit
}

// MonitorZone is registrar.monitor(zone).
func (a *API) MonitorZone(ctx context.Context, z ids.ZoneCode) error {
	_, err := registrar.MonitorForecastZone(ctx, a.Store, z, nil)
	return err
}

// IgnoreZone is registrar.ignore(zone).
func (a *API) IgnoreZone(ctx context.Context, z ids.ZoneCode) error {
	_, err := registrar.IgnoreForecastZone(ctx, a.Store, z, nil)
	return err
}

// ClearMonitoring is registrar.clear().
func (a *API) ClearMonitoring(ctx context.Context) error {
	_, err := registrar.ClearZoneMonitoring(ctx, a.Store, nil)
	return err
}

// ListMonitored is registrar.list_monitored().
func (a *API) ListMonitored() []ids.ZoneCode {
	if a.Zones == nil {
		return nil
	}
	return a.Zones.Zones()
}

// UpdateWeather is weather.update(zones): returns (nil, nil) when zones
// is empty rather than starting a saga with no work to do.
func (a *API) UpdateWeather(ctx context.Context, zones []ids.ZoneCode) (*ids.UpdateID, error) {
	if len(zones) == 0 {
		return nil, nil
	}

	updateID := ids.NewUpdateID()
	if _, err := update.StartUpdate(ctx, a.Store, updateID, zones, a.UpdateHook); err != nil {
		return nil, fmt.Errorf("command: update weather: %w", err)
	}
	return &updateID, nil
}

// FetchUpdateStatus is weather.fetch_update_status(update_id): returns
// (nil, nil) if no StartUpdate has ever been recorded for updateID. When
// UpdateStatus is configured (a Postgres deployment), it answers from the
// materialized update_weather_history table; otherwise it replays the
// event log directly.
func (a *API) FetchUpdateStatus(ctx context.Context, updateID ids.UpdateID) (*update.Status, error) {
	if a.UpdateStatus != nil {
		state, found, err := a.UpdateStatus.FetchStatus(ctx, updateID)
		if err != nil {
			return nil, fmt.Errorf("command: fetch update status: %w", err)
		}
		if !found {
			return nil, nil
		}
		return &state.Status, nil
	}

	state, err := update.DeriveState(ctx, a.Store, updateID)
	if err != nil {
		return nil, fmt.Errorf("command: fetch update status: %w", err)
	}
	if !state.Started {
		return nil, nil
	}
	return &state.Status, nil
}

// FetchZoneWeather is weather.fetch_zone_weather(zone).
func (a *API) FetchZoneWeather(ctx context.Context, z ids.ZoneCode) (*ZoneWeatherView, error) {
	if a.ZoneWeather == nil {
		return nil, fmt.Errorf("command: no zone weather source configured")
	}
	frame, forecast, alert, err := a.ZoneWeather.FetchZoneWeather(ctx, z)
	if err != nil {
		return nil, fmt.Errorf("command: fetch zone weather: %w", err)
	}
	if frame == nil && forecast == nil && alert == nil {
		return nil, nil
	}
	return &ZoneWeatherView{Zone: z, Frame: frame, Forecast: forecast, Alert: alert}, nil
}
