// Package noaa is the external weather provider boundary: the
// ZoneWeatherApi/AlertApi contract the orchestrator calls to fetch a
// zone's observation, forecast, and the provider's active alert feed, plus
// two implementations — a pooled, retrying HTTP client against the real
// service, and a deterministic fixture for local runs and tests.
package noaa

import (
	"context"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

// ZoneWeatherApi fetches per-zone observation and forecast data.
type ZoneWeatherApi interface {
	ZoneObservation(ctx context.Context, zone ids.ZoneCode) (weather.Frame, error)
	ZoneForecast(ctx context.Context, zoneType ids.ZoneType, zone ids.ZoneCode) (weather.ZoneForecast, error)
}

// AlertApi fetches the provider's current active-alert feed.
type AlertApi interface {
	ActiveAlerts(ctx context.Context) ([]weather.Alert, error)
}

// WeatherServices is the full provider surface the orchestrator depends on.
type WeatherServices interface {
	ZoneWeatherApi
	AlertApi
}
