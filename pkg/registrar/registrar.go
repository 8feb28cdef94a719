// Package registrar implements the Registrar aggregate: the
// set of currently monitored forecast zones, held on a single singleton
// stream.
package registrar

import (
	"context"
	"encoding/json"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
)

// Event type tags for the registrar's stream.
const (
	EventForecastZoneAdded      = "ForecastZoneAdded"
	EventForecastZoneRemoved    = "ForecastZoneRemoved"
	EventAllForecastZonesRemoved = "AllForecastZonesRemoved"
)

// Filter selects the registrar's singleton stream.
var Filter = eventlog.ByType(EventForecastZoneAdded, EventForecastZoneRemoved, EventAllForecastZonesRemoved)

// ZonePayload is the payload carried by ForecastZoneAdded/Removed.
type ZonePayload struct {
	Zone ids.ZoneCode `json:"zone"`
}

// State is the registrar aggregate: the set of monitored zones,
// reconstructed from the filtered event slice. No duplicates invariant is
// enforced by Reduce never double-inserting and by MonitorForecastZone
// rejecting an add against a zone already present.
type State struct {
	Zones map[ids.ZoneCode]struct{}
}

// ZeroState is the registrar's initial (empty) state.
func ZeroState() State {
	return State{Zones: make(map[ids.ZoneCode]struct{})}
}

// Reduce folds one persisted registrar event into state.
func Reduce(state State, e eventlog.Event) State {
	if state.Zones == nil {
		state.Zones = make(map[ids.ZoneCode]struct{})
	}

	switch e.Type {
	case EventForecastZoneAdded:
		var payload ZonePayload
		if err := json.Unmarshal(e.Payload, &payload); err == nil {
			state.Zones[payload.Zone] = struct{}{}
		}

	case EventForecastZoneRemoved:
		var payload ZonePayload
		if err := json.Unmarshal(e.Payload, &payload); err == nil {
			delete(state.Zones, payload.Zone)
		}

	case EventAllForecastZonesRemoved:
		state.Zones = make(map[ids.ZoneCode]struct{})
	}

	return state
}

// Monitored reports whether zone is currently in the monitored set.
func (s State) Monitored(zone ids.ZoneCode) bool {
	_, ok := s.Zones[zone]
	return ok
}

// IsEmpty reports whether no zones are currently monitored.
func (s State) IsEmpty() bool {
	return len(s.Zones) == 0
}

// List returns the monitored zones in no particular order.
func (s State) List() []ids.ZoneCode {
	zones := make([]ids.ZoneCode, 0, len(s.Zones))
	for z := range s.Zones {
		zones = append(zones, z)
	}
	return zones
}

// PostCommit is invoked after a successful registrar append. The registrar
// has no orchestration follow-up of its own (unlike StartUpdate), and every
// caller in this repository passes nil; projections.MonitoredZonesView
// follows the registrar stream through Store.Subscribe, not through this
// hook.
type PostCommit func(ctx context.Context, persisted []eventlog.Event)
