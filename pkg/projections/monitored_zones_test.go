package projections_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/projections"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoredZonesView_TracksRegistrarStream(t *testing.T) {
	store := eventlog.NewMemStore()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := registrar.MonitorForecastZone(ctx, store, "otis", nil)
	require.NoError(t, err)
	_, err = registrar.MonitorForecastZone(ctx, store, "neo", nil)
	require.NoError(t, err)

	view := projections.NewMonitoredZonesView()
	go view.Run(ctx, store, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return view.Monitored(ids.ZoneCode("otis")) && view.Monitored(ids.ZoneCode("neo"))
	}, 150*time.Millisecond, 5*time.Millisecond)

	_, err = registrar.IgnoreForecastZone(ctx, store, "otis", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !view.Monitored(ids.ZoneCode("otis"))
	}, 150*time.Millisecond, 5*time.Millisecond)

	assert.True(t, view.Monitored(ids.ZoneCode("neo")))
}
