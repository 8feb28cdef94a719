package update

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/decision"
	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
)

// PostCommit runs after a successful StartUpdate append. It is the saga
// orchestrator's entry point and must never be invoked for
// any command but StartUpdate — NoteAlertsReviewed and
// NoteLocationUpdateFailure are follow-up commands the orchestrator
// itself issues, not triggers for new orchestration.
type PostCommit func(ctx context.Context, updateID ids.UpdateID, persisted []eventlog.Event)

// StartUpdate fails with NoLocations if zones is empty, AlreadyStarted if
// this update_id has already seen a StartUpdate. On success it emits
// UpdateStarted and, only after a successful append, invokes hook — the
// saga orchestrator's fan-out.
func StartUpdate(ctx context.Context, store eventlog.Store, updateID ids.UpdateID, zones []ids.ZoneCode, hook PostCommit) ([]eventlog.Event, error) {
	if len(zones) == 0 {
		return nil, weathererr.NoLocations
	}

	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter(updateID),
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if state.Started {
				return nil, weathererr.AlreadyStarted(string(updateID))
			}
			payload, err := json.Marshal(UpdateStartedPayload{Zones: zones})
			if err != nil {
				return nil, fmt.Errorf("update: marshal UpdateStarted: %w", err)
			}
			return []eventlog.NewEvent{{
				Type:     EventUpdateStarted,
				UpdateID: string(updateID),
				Payload:  payload,
			}}, nil
		},
		PostCommit: func(ctx context.Context, persisted []eventlog.Event) {
			if hook != nil {
				hook(ctx, updateID, persisted)
			}
		},
	})
}

// NoteAlertsReviewed is valid only while the saga is Active (started, not
// yet finished); emits AlertsReviewed.
func NoteAlertsReviewed(ctx context.Context, store eventlog.Store, updateID ids.UpdateID) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter(updateID),
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if !state.Started {
				return nil, weathererr.NotStarted(string(updateID), "NoteAlertsReviewed")
			}
			if state.IsFinished() {
				return nil, weathererr.Finished(string(updateID), "NoteAlertsReviewed")
			}
			return []eventlog.NewEvent{{
				Type:     EventAlertsReviewed,
				UpdateID: string(updateID),
			}}, nil
		},
	})
}

// NoteLocationUpdateFailure is valid only while the saga is Active; emits
// UpdateLocationFailed for zone.
func NoteLocationUpdateFailure(ctx context.Context, store eventlog.Store, updateID ids.UpdateID, z ids.ZoneCode, cause string) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[State]{
		Filter: Filter(updateID),
		Zero:   ZeroState(),
		Reduce: Reduce,
		Process: func(state State) ([]eventlog.NewEvent, error) {
			if !state.Started {
				return nil, weathererr.NotStarted(string(updateID), "NoteLocationUpdateFailure")
			}
			if state.IsFinished() {
				return nil, weathererr.Finished(string(updateID), "NoteLocationUpdateFailure")
			}
			payload, err := json.Marshal(UpdateLocationFailedPayload{Zone: z, Cause: cause})
			if err != nil {
				return nil, fmt.Errorf("update: marshal UpdateLocationFailed: %w", err)
			}
			return []eventlog.NewEvent{{
				Type:     EventUpdateLocationFailed,
				Zone:     string(z),
				UpdateID: string(updateID),
				Payload:  payload,
			}}, nil
		},
	})
}

// DeriveState replays updateID's full tagged event slice, for read paths
// (the Command API's fetch_update_status when no UpdateStatusSource is
// configured) that need current state without issuing a command.
func DeriveState(ctx context.Context, store eventlog.Store, updateID ids.UpdateID) (State, error) {
	events, err := store.Read(ctx, Filter(updateID), 0)
	if err != nil {
		return State{}, fmt.Errorf("update: derive state: %w", err)
	}
	state := ZeroState()
	for _, e := range events {
		state = Reduce(state, e)
	}
	return state, nil
}
