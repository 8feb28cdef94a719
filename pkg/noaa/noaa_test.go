package noaa_test

import (
	"context"
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/noaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureClient_ZoneObservation(t *testing.T) {
	client := noaa.NewFixtureClient()
	frame, err := client.ZoneObservation(context.Background(), ids.ZoneCode("otis"))
	require.NoError(t, err)
	require.NotNil(t, frame.Temperature)
	assert.Equal(t, 72.0, frame.Temperature.Value)
}

func TestFixtureClient_ZoneForecast(t *testing.T) {
	client := noaa.NewFixtureClient()
	forecast, err := client.ZoneForecast(context.Background(), ids.ZoneTypeForecast, ids.ZoneCode("neo"))
	require.NoError(t, err)
	assert.Equal(t, "neo", forecast.ZoneCode)
	require.Len(t, forecast.Periods, 1)
}

func TestFixtureClient_ActiveAlerts(t *testing.T) {
	client := noaa.NewFixtureClient()
	alerts, err := client.ActiveAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "High Wind Watch", alerts[0].Event)
}

func TestNewHTTPClient_RejectsUnusableBaseURL(t *testing.T) {
	_, err := noaa.NewHTTPClient("not-a-url", "weather-monitor/test")
	require.Error(t, err)
}

func TestNewHTTPClient_AcceptsValidBaseURL(t *testing.T) {
	client, err := noaa.NewHTTPClient("https://api.weather.gov", "weather-monitor/test (contact@example.com)")
	require.NoError(t, err)
	require.NotNil(t, client)
}
