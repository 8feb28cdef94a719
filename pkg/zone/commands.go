package zone

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/decision"
	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

// NoteObservation unconditionally emits ObservationUpdated — a fresh
// observation always replaces whatever was recorded before.
func NoteObservation(ctx context.Context, store eventlog.Store, z ids.ZoneCode, updateID ids.UpdateID, frame weather.Frame) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[ObservationState]{
		Filter: ObservationFilter(z),
		Zero:   ObservationState{},
		Reduce: ReduceObservation,
		Process: func(ObservationState) ([]eventlog.NewEvent, error) {
			payload, err := json.Marshal(frame)
			if err != nil {
				return nil, fmt.Errorf("zone: marshal observation: %w", err)
			}
			return []eventlog.NewEvent{{
				Type:     EventObservationUpdated,
				Zone:     string(z),
				UpdateID: string(updateID),
				Payload:  payload,
			}}, nil
		},
	})
}

// NoteForecast unconditionally emits ForecastUpdated.
func NoteForecast(ctx context.Context, store eventlog.Store, z ids.ZoneCode, updateID ids.UpdateID, forecast weather.ZoneForecast) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[ForecastState]{
		Filter: ForecastFilter(z),
		Zero:   ForecastState{},
		Reduce: ReduceForecast,
		Process: func(ForecastState) ([]eventlog.NewEvent, error) {
			payload, err := json.Marshal(forecast)
			if err != nil {
				return nil, fmt.Errorf("zone: marshal forecast: %w", err)
			}
			return []eventlog.NewEvent{{
				Type:     EventForecastUpdated,
				Zone:     string(z),
				UpdateID: string(updateID),
				Payload:  payload,
			}}, nil
		},
	})
}

// NoteAlert compares the zone's current alert-slice state against the
// supplied alert (nil if none is currently active for the zone upstream):
// absent→present emits AlertActivated, present→absent emits
// AlertDeactivated, otherwise nothing.
func NoteAlert(ctx context.Context, store eventlog.Store, z ids.ZoneCode, updateID ids.UpdateID, alert *weather.Alert) ([]eventlog.Event, error) {
	return decision.Make(ctx, store, decision.Command[AlertState]{
		Filter: AlertFilter(z),
		Zero:   AlertState{},
		Reduce: ReduceAlert,
		Process: func(state AlertState) ([]eventlog.NewEvent, error) {
			switch {
			case !state.Active() && alert != nil:
				payload, err := json.Marshal(alert)
				if err != nil {
					return nil, fmt.Errorf("zone: marshal alert: %w", err)
				}
				return []eventlog.NewEvent{{
					Type:     EventAlertActivated,
					Zone:     string(z),
					UpdateID: string(updateID),
					Payload:  payload,
				}}, nil

			case state.Active() && alert == nil:
				return []eventlog.NewEvent{{
					Type:     EventAlertDeactivated,
					Zone:     string(z),
					UpdateID: string(updateID),
				}}, nil

			default:
				return nil, nil
			}
		},
	})
}

// DeriveObservation replays a zone's observation slice.
func DeriveObservation(ctx context.Context, store eventlog.Store, z ids.ZoneCode) (ObservationState, error) {
	events, err := store.Read(ctx, ObservationFilter(z), 0)
	if err != nil {
		return ObservationState{}, fmt.Errorf("zone: derive observation: %w", err)
	}
	state := ObservationState{}
	for _, e := range events {
		state = ReduceObservation(state, e)
	}
	return state, nil
}

// DeriveForecast replays a zone's forecast slice.
func DeriveForecast(ctx context.Context, store eventlog.Store, z ids.ZoneCode) (ForecastState, error) {
	events, err := store.Read(ctx, ForecastFilter(z), 0)
	if err != nil {
		return ForecastState{}, fmt.Errorf("zone: derive forecast: %w", err)
	}
	state := ForecastState{}
	for _, e := range events {
		state = ReduceForecast(state, e)
	}
	return state, nil
}

// DeriveAlert replays a zone's alert slice.
func DeriveAlert(ctx context.Context, store eventlog.Store, z ids.ZoneCode) (AlertState, error) {
	events, err := store.Read(ctx, AlertFilter(z), 0)
	if err != nil {
		return AlertState{}, fmt.Errorf("zone: derive alert: %w", err)
	}
	state := AlertState{}
	for _, e := range events {
		state = ReduceAlert(state, e)
	}
	return state, nil
}
