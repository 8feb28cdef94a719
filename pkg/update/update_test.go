package update_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/update"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSagaCompletion exercises the happy path: every zone succeeds and
// alerts are reviewed.
func TestSagaCompletion(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	updateID := ids.UpdateID("U")
	zones := []ids.ZoneCode{"otis", "stella", "neo"}

	_, err := update.StartUpdate(ctx, store, updateID, zones, nil)
	require.NoError(t, err)

	for _, z := range zones {
		_, err := zone.NoteObservation(ctx, store, z, updateID, weather.Frame{})
		require.NoError(t, err)
		_, err = zone.NoteForecast(ctx, store, z, updateID, weather.ZoneForecast{ZoneCode: string(z)})
		require.NoError(t, err)
	}

	_, err = update.NoteAlertsReviewed(ctx, store, updateID)
	require.NoError(t, err)

	state, err := update.DeriveState(ctx, store, updateID)
	require.NoError(t, err)
	assert.True(t, state.IsFinished())
}

// TestSagaCompletion_WithFailure checks that one zone failing still lets
// the saga reach Finished.
func TestSagaCompletion_WithFailure(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	updateID := ids.UpdateID("U")
	zones := []ids.ZoneCode{"otis", "stella", "neo"}

	_, err := update.StartUpdate(ctx, store, updateID, zones, nil)
	require.NoError(t, err)

	for _, z := range []ids.ZoneCode{"otis", "stella"} {
		_, err := zone.NoteObservation(ctx, store, z, updateID, weather.Frame{})
		require.NoError(t, err)
		_, err = zone.NoteForecast(ctx, store, z, updateID, weather.ZoneForecast{ZoneCode: string(z)})
		require.NoError(t, err)
	}

	_, err = update.NoteLocationUpdateFailure(ctx, store, updateID, "neo", "provider down")
	require.NoError(t, err)

	_, err = update.NoteAlertsReviewed(ctx, store, updateID)
	require.NoError(t, err)

	state, err := update.DeriveState(ctx, store, updateID)
	require.NoError(t, err)
	assert.True(t, state.IsFinished())

	status, ok := state.Status.StatusFor("neo")
	require.True(t, ok)
	assert.Equal(t, update.ZoneFailed, status.Status)
	assert.Equal(t, "provider down", status.Cause)
}

func TestStartUpdate_NoLocations(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	_, err := update.StartUpdate(ctx, store, "U", nil, nil)
	require.Error(t, err)
}

func TestStartUpdate_AlreadyStarted(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()

	_, err := update.StartUpdate(ctx, store, "U", []ids.ZoneCode{"otis"}, nil)
	require.NoError(t, err)

	_, err = update.StartUpdate(ctx, store, "U", []ids.ZoneCode{"otis"}, nil)
	require.Error(t, err)
}

func TestNoteAlertsReviewed_RejectedOnceFinished(t *testing.T) {
	ctx := context.Background()
	store := eventlog.NewMemStore()
	updateID := ids.UpdateID("U")

	_, err := update.StartUpdate(ctx, store, updateID, []ids.ZoneCode{"otis"}, nil)
	require.NoError(t, err)
	_, err = zone.NoteObservation(ctx, store, "otis", updateID, weather.Frame{})
	require.NoError(t, err)
	_, err = zone.NoteForecast(ctx, store, "otis", updateID, weather.ZoneForecast{ZoneCode: "otis"})
	require.NoError(t, err)
	_, err = update.NoteAlertsReviewed(ctx, store, updateID)
	require.NoError(t, err)

	_, err = update.NoteAlertsReviewed(ctx, store, updateID)
	require.Error(t, err, "a finished saga must reject further commands")
}

func TestLocationUpdateStatus_JSONOmitsCompletedWhenTerminal(t *testing.T) {
	succeeded := update.LocationUpdateStatus{Status: update.ZoneSucceeded}
	raw, err := json.Marshal(succeeded)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"succeeded"}`, string(raw))

	inProgress := update.LocationUpdateStatus{Status: update.ZoneInProgress, Completed: update.StepForecast}
	raw, err = json.Marshal(inProgress)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"in_progress","completed":["forecast"]}`, string(raw))
}
