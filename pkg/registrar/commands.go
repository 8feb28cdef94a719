package registrar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/decision"
	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
)

func zonePayload(zone ids.ZoneCode) eventlog.NewEvent {
	raw, _ := json.Marshal(ZonePayload{Zone: zone})
	return eventlog.NewEvent{Payload: raw}
}

// MonitorForecastZone emits ForecastZoneAdded iff zone is not already
// monitored; otherwise fails with AlreadyMonitored.
func MonitorForecastZone(ctx context.Context, store eventlog.Store, zone ids.ZoneCode, hook PostCommit) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter,
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if state.Monitored(zone) {
				return nil, weathererr.AlreadyMonitored(string(zone))
			}
			event := zonePayload(zone)
			event.Type = EventForecastZoneAdded
			event.Zone = string(zone)
			return []eventlog.NewEvent{event}, nil
		},
		PostCommit: decisionPostCommit(hook),
	})
}

// IgnoreForecastZone emits ForecastZoneRemoved iff zone is currently
// monitored; otherwise it is a no-op.
func IgnoreForecastZone(ctx context.Context, store eventlog.Store, zone ids.ZoneCode, hook PostCommit) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter,
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if !state.Monitored(zone) {
				return nil, nil
			}
			event := zonePayload(zone)
			event.Type = EventForecastZoneRemoved
			event.Zone = string(zone)
			return []eventlog.NewEvent{event}, nil
		},
		PostCommit: decisionPostCommit(hook),
	})
}

// ClearZoneMonitoring emits AllForecastZonesRemoved iff the monitored set
// is non-empty; otherwise a no-op.
func ClearZoneMonitoring(ctx context.Context, store eventlog.Store, hook PostCommit) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter,
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if state.IsEmpty() {
				return nil, nil
			}
			return []eventlog.NewEvent{{Type: EventAllForecastZonesRemoved}}, nil
		},
		PostCommit: decisionPostCommit(hook),
	})
}

func decisionPostCommit(hook PostCommit) func(context.Context, []eventlog.Event) {
	if hook == nil {
		return nil
	}
	return func(ctx context.Context, persisted []eventlog.Event) {
		hook(ctx, persisted)
	}
}

// DeriveState replays the registrar's full event slice, for callers (the
// Command API, projections bootstrapping) that need the current set of
// monitored zones without issuing a command.
func DeriveState(ctx context.Context, store eventlog.Store) (State, error) {
	events, err := store.Read(ctx, Filter, 0)
	if err != nil {
		return State{}, fmt.Errorf("registrar: derive state: %w", err)
	}
	state := ZeroState()
	for _, e := range events {
		state = Reduce(state, e)
	}
	return state, nil
}
