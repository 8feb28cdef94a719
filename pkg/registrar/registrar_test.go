package registrar_test

import (
	"context"
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMonitorForecastZone_AddAdd checks that monitoring an already
// monitored zone fails with AlreadyMonitored.
func TestMonitorForecastZone_AddAdd(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	events, err := registrar.MonitorForecastZone(ctx, store, "otis", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, registrar.EventForecastZoneAdded, events[0].Type)

	_, err = registrar.MonitorForecastZone(ctx, store, "otis", nil)
	require.Error(t, err)
	var domainErr *weathererr.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "AlreadyMonitored", domainErr.Code)
}

// TestIgnoreForecastZone_NonMonitored checks that ignoring a zone that
// was never monitored is a no-op.
func TestIgnoreForecastZone_NonMonitored(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	_, err := registrar.MonitorForecastZone(ctx, store, "otis", nil)
	require.NoError(t, err)

	events, err := registrar.IgnoreForecastZone(ctx, store, "stella", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestClearZoneMonitoring_All checks that clearing removes every
// monitored zone in one event.
func TestClearZoneMonitoring_All(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	for _, zone := range []ids.ZoneCode{"otis", "stella", "neo"} {
		_, err := registrar.MonitorForecastZone(ctx, store, zone, nil)
		require.NoError(t, err)
	}

	events, err := registrar.ClearZoneMonitoring(ctx, store, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, registrar.EventAllForecastZonesRemoved, events[0].Type)

	state, err := registrar.DeriveState(ctx, store)
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
}

func TestClearZoneMonitoring_AlreadyEmpty(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	events, err := registrar.ClearZoneMonitoring(ctx, store, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}
