package zone_test

import (
	"context"
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNoteAlert_Transitions walks an alert through activation, a repeat
// observation, and deactivation.
func TestNoteAlert_Transitions(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	z := ids.ZoneCode("otis")
	updateID := ids.UpdateID("u-1")
	alert := &weather.Alert{Event: "Winter Storm Warning"}

	events, err := zone.NoteAlert(ctx, store, z, updateID, alert)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, zone.EventAlertActivated, events[0].Type)

	events, err = zone.NoteAlert(ctx, store, z, updateID, alert)
	require.NoError(t, err)
	assert.Empty(t, events, "repeating the same active alert emits nothing")

	events, err = zone.NoteAlert(ctx, store, z, updateID, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, zone.EventAlertDeactivated, events[0].Type)
}

func TestNoteObservation_AlwaysEmits(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	z := ids.ZoneCode("otis")
	updateID := ids.UpdateID("u-1")

	_, err := zone.NoteObservation(ctx, store, z, updateID, weather.Frame{})
	require.NoError(t, err)
	_, err = zone.NoteObservation(ctx, store, z, updateID, weather.Frame{})
	require.NoError(t, err)

	events, err := store.Read(ctx, zone.ObservationFilter(z), 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestNoteForecast_IndependentOfObservationSlice(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	z := ids.ZoneCode("otis")
	updateID := ids.UpdateID("u-1")

	_, err := zone.NoteObservation(ctx, store, z, updateID, weather.Frame{})
	require.NoError(t, err)
	_, err = zone.NoteForecast(ctx, store, z, updateID, weather.ZoneForecast{ZoneCode: string(z)})
	require.NoError(t, err)

	obs, err := zone.DeriveObservation(ctx, store, z)
	require.NoError(t, err)
	require.NotNil(t, obs.Frame)

	fc, err := zone.DeriveForecast(ctx, store, z)
	require.NoError(t, err)
	require.NotNil(t, fc.Forecast)
}
