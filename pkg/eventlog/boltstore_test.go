package eventlog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBoltStore(t *testing.T) *eventlog.BoltStore {
	t.Helper()
	store, err := eventlog.OpenBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStore_AppendMonotonicity(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()
	filter := eventlog.ByType("Foo")

	persisted, err := store.Append(ctx, filter, 0, []eventlog.NewEvent{
		{Type: "Foo"}, {Type: "Foo"}, {Type: "Foo"},
	})
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.Equal(t, int64(1), persisted[0].Sequence)
	assert.Equal(t, int64(2), persisted[1].Sequence)
	assert.Equal(t, int64(3), persisted[2].Sequence)
}

func TestBoltStore_AppendConflict(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()
	filter := eventlog.ByType("Foo")

	_, err := store.Append(ctx, filter, 0, []eventlog.NewEvent{{Type: "Foo"}})
	require.NoError(t, err)

	_, err = store.Append(ctx, filter, 0, []eventlog.NewEvent{{Type: "Foo"}})
	require.ErrorIs(t, err, weathererr.Conflict)
}

// TestBoltStore_ReadFiltersByZone exercises the events_by_zone secondary
// index: only otis's event should come back, and neo's must never be
// scanned into the result by the zone filter.
func TestBoltStore_ReadFiltersByZone(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}, 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "otis"},
		{Type: "ObservationUpdated", Zone: "neo"},
	})
	require.NoError(t, err)

	events, err := store.Read(ctx, eventlog.Filter{}.ForZone("otis"), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "otis", events[0].Zone)
}

// TestBoltStore_ReadFiltersByUpdateID exercises the events_by_update
// secondary index the same way ReadFiltersByZone exercises events_by_zone.
func TestBoltStore_ReadFiltersByUpdateID(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}, 0, []eventlog.NewEvent{
		{Type: "UpdateStarted", UpdateID: "u-1"},
		{Type: "UpdateStarted", UpdateID: "u-2"},
	})
	require.NoError(t, err)

	events, err := store.Read(ctx, eventlog.Filter{}.ForUpdate("u-1"), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "u-1", events[0].UpdateID)
}

// TestBoltStore_ReadFiltersByZoneAndUpdateID exercises the conjunction of
// both secondary indexes together (the Filter.Zone and Filter.UpdateID
// set simultaneously case).
func TestBoltStore_ReadFiltersByZoneAndUpdateID(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}, 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "otis", UpdateID: "u-1"},
		{Type: "ObservationUpdated", Zone: "otis", UpdateID: "u-2"},
		{Type: "ObservationUpdated", Zone: "neo", UpdateID: "u-1"},
	})
	require.NoError(t, err)

	events, err := store.Read(ctx, eventlog.Filter{Zone: "otis", UpdateID: "u-1"}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "otis", events[0].Zone)
	assert.Equal(t, "u-1", events[0].UpdateID)
}

func TestBoltStore_ReadRespectsFromVersion(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}.ForZone("otis"), 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "otis"},
		{Type: "ObservationUpdated", Zone: "otis"},
	})
	require.NoError(t, err)

	events, err := store.Read(ctx, eventlog.Filter{}.ForZone("otis"), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].Sequence)
}

func TestBoltStore_VersionUsesZoneIndex(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}, 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "otis"},
		{Type: "ObservationUpdated", Zone: "neo"},
		{Type: "ObservationUpdated", Zone: "otis"},
	})
	require.NoError(t, err)

	version, err := store.Version(ctx, eventlog.Filter{}.ForZone("otis"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestBoltStore_DisjointFiltersDoNotConflict(t *testing.T) {
	store := openTestBoltStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, eventlog.Filter{}.ForZone("otis"), 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "otis"},
	})
	require.NoError(t, err)

	_, err = store.Append(ctx, eventlog.Filter{}.ForZone("neo"), 0, []eventlog.NewEvent{
		{Type: "ObservationUpdated", Zone: "neo"},
	})
	require.NoError(t, err, "appends against disjoint filters must not conflict")
}
