package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/command"
	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/projections"
	"github.com/dmrolfs/weather-monitor/pkg/update"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*command.API, eventlog.Store, context.Context) {
	t.Helper()
	store := eventlog.NewMemStore()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	t.Cleanup(cancel)

	view := projections.NewMonitoredZonesView()
	go view.Run(ctx, store, 5*time.Millisecond)

	return &command.API{
		Store:       store,
		Zones:       view,
		ZoneWeather: command.EventLogZoneWeatherSource{Store: store},
	}, store, ctx
}

func TestAPI_MonitorIgnoreClear(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	require.NoError(t, api.MonitorZone(ctx, "otis"))
	require.Eventually(t, func() bool {
		zones := api.ListMonitored()
		return len(zones) == 1 && zones[0] == ids.ZoneCode("otis")
	}, 200*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, api.IgnoreZone(ctx, "otis"))
	require.Eventually(t, func() bool {
		return len(api.ListMonitored()) == 0
	}, 200*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, api.MonitorZone(ctx, "otis"))
	require.NoError(t, api.MonitorZone(ctx, "neo"))
	require.Eventually(t, func() bool {
		return len(api.ListMonitored()) == 2
	}, 200*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, api.ClearMonitoring(ctx))
	require.Eventually(t, func() bool {
		return len(api.ListMonitored()) == 0
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestAPI_MonitorZone_AlreadyMonitored(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	require.NoError(t, api.MonitorZone(ctx, "otis"))
	err := api.MonitorZone(ctx, "otis")
	require.Error(t, err)
}

func TestAPI_UpdateWeather_EmptyZonesIsNoop(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	updateID, err := api.UpdateWeather(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, updateID)
}

func TestAPI_UpdateWeather_StartsSagaAndReportsStatus(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	updateID, err := api.UpdateWeather(ctx, []ids.ZoneCode{"otis"})
	require.NoError(t, err)
	require.NotNil(t, updateID)

	status, err := api.FetchUpdateStatus(ctx, *updateID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, status.AlertsReviewed)
	assert.Len(t, status.ActiveZones(), 1)
}

func TestAPI_FetchUpdateStatus_UnknownUpdateID(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	status, err := api.FetchUpdateStatus(ctx, ids.UpdateID("never-started"))
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestAPI_FetchZoneWeather_EventLogSource(t *testing.T) {
	api, store, ctx := newTestAPI(t)

	updateID := ids.UpdateID("u-1")
	_, err := zone.NoteObservation(ctx, store, "otis", updateID, weather.Frame{})
	require.NoError(t, err)

	view, err := api.FetchZoneWeather(ctx, "otis")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, ids.ZoneCode("otis"), view.Zone)
	assert.NotNil(t, view.Frame)
	assert.Nil(t, view.Forecast)
	assert.Nil(t, view.Alert)
}

func TestAPI_FetchZoneWeather_NoDataYet(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	view, err := api.FetchZoneWeather(ctx, "neo")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestAPI_FetchZoneWeather_NoSourceConfigured(t *testing.T) {
	api := &command.API{Store: eventlog.NewMemStore()}

	_, err := api.FetchZoneWeather(context.Background(), "otis")
	require.Error(t, err)
}

// allNilZoneWeatherSource stands in for a Postgres-backed
// ZoneWeatherProjection querying a zone with no row yet: it must report
// "nothing known" as (nil, nil, nil, nil), never an error, the same
// contract EventLogZoneWeatherSource upholds for a zero-value replay.
type allNilZoneWeatherSource struct{}

func (allNilZoneWeatherSource) FetchZoneWeather(context.Context, ids.ZoneCode) (*weather.Frame, *weather.ZoneForecast, *weather.Alert, error) {
	return nil, nil, nil, nil
}

func TestAPI_FetchZoneWeather_UnseenZoneIsNilNotError(t *testing.T) {
	api := &command.API{Store: eventlog.NewMemStore(), ZoneWeather: allNilZoneWeatherSource{}}

	view, err := api.FetchZoneWeather(context.Background(), "otis")
	require.NoError(t, err)
	assert.Nil(t, view)
}

// fakeUpdateStatusSource stands in for UpdateWeatherHistoryProjection
// without a Postgres connection, so FetchUpdateStatus's branch on
// API.UpdateStatus can be exercised directly.
type fakeUpdateStatusSource struct {
	state update.State
	found bool
	err   error
}

func (f fakeUpdateStatusSource) FetchStatus(context.Context, ids.UpdateID) (update.State, bool, error) {
	return f.state, f.found, f.err
}

func TestAPI_FetchUpdateStatus_PrefersUpdateStatusSource(t *testing.T) {
	state := update.ZeroState()
	state.Started = true
	state.Status.AlertsReviewed = true

	api := &command.API{
		Store:        eventlog.NewMemStore(),
		UpdateStatus: fakeUpdateStatusSource{state: state, found: true},
	}

	status, err := api.FetchUpdateStatus(context.Background(), ids.UpdateID("u-1"))
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.AlertsReviewed)
}

func TestAPI_FetchUpdateStatus_UpdateStatusSourceNotFound(t *testing.T) {
	api := &command.API{
		Store:        eventlog.NewMemStore(),
		UpdateStatus: fakeUpdateStatusSource{found: false},
	}

	status, err := api.FetchUpdateStatus(context.Background(), ids.UpdateID("never-started"))
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestAPI_FetchUpdateStatus_FallsBackToEventLogWithoutSource(t *testing.T) {
	api, _, ctx := newTestAPI(t)

	updateID, err := api.UpdateWeather(ctx, []ids.ZoneCode{"otis"})
	require.NoError(t, err)
	require.NotNil(t, updateID)

	status, err := api.FetchUpdateStatus(ctx, *updateID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Len(t, status.ActiveZones(), 1)
}
