package command

import (
	"context"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
)

// EventLogZoneWeatherSource satisfies ZoneWeatherSource by replaying a
// zone's three event slices directly, with no separate projection store.
// It suits the BoltDB/in-memory deployments (cmd/weatherd's default);
// a Postgres deployment uses *projections.ZoneWeatherProjection instead,
// which answers from the materialized zone_weather table rather than
// replaying the log on every read.
type EventLogZoneWeatherSource struct {
	Store eventlog.Store
}

func (s EventLogZoneWeatherSource) FetchZoneWeather(ctx context.Context, z ids.ZoneCode) (*weather.Frame, *weather.ZoneForecast, *weather.Alert, error) {
	observation, err := zone.DeriveObservation(ctx, s.Store, z)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("command: fetch zone weather: %w", err)
	}
	forecast, err := zone.DeriveForecast(ctx, s.Store, z)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("command: fetch zone weather: %w", err)
	}
	alert, err := zone.DeriveAlert(ctx, s.Store, z)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("command: fetch zone weather: %w", err)
	}
	return observation.Frame, forecast.Forecast, alert.Alert, nil
}
