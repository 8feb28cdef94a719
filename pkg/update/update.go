// Package update implements the Update Weather Saga Aggregate: the
// per-run state machine that tracks one "update all monitored zones"
// operation to completion. Completion is a derived property of event
// interleaving, not a distinct terminal event -- IsFinished recomputes
// it from Status on every read.
package update

import (
	"encoding/json"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
)

// Event type tags. UpdateStarted/AlertsReviewed/UpdateLocationFailed are
// this aggregate's own events; ObservationUpdated/ForecastUpdated/
// AlertActivated/AlertDeactivated are zone-slice events that also carry
// this saga's update_id tag and are folded into the same state.
const (
	EventUpdateStarted        = "UpdateStarted"
	EventAlertsReviewed       = "AlertsReviewed"
	EventUpdateLocationFailed = "UpdateLocationFailed"
)

// Filter selects every event tagged with updateID, across both the
// saga's own event types and the zone-slice events that share the tag.
func Filter(updateID ids.UpdateID) eventlog.Filter {
	return eventlog.Filter{UpdateID: string(updateID)}
}

// UpdateStartedPayload is UpdateStarted's payload: the zones this run
// covers.
type UpdateStartedPayload struct {
	Zones []ids.ZoneCode `json:"zones"`
}

// UpdateLocationFailedPayload is UpdateLocationFailed's payload.
type UpdateLocationFailedPayload struct {
	Zone  ids.ZoneCode `json:"zone"`
	Cause string       `json:"cause"`
}

// Status is the saga's Active-phase payload: per-zone progress plus
// whether the global alerts-reviewed step has fired.
type Status struct {
	Zones          map[ids.ZoneCode]LocationUpdateStatus `json:"zones"`
	AlertsReviewed bool                                   `json:"alertsReviewed"`
}

func zeroStatus() Status {
	return Status{Zones: make(map[ids.ZoneCode]LocationUpdateStatus)}
}

// prepZone ensures zone has a tracked status, adding it as in-progress if
// this is the first event seen for it.
func (s *Status) prepZone(z ids.ZoneCode) LocationUpdateStatus {
	if s.Zones == nil {
		s.Zones = make(map[ids.ZoneCode]LocationUpdateStatus)
	}
	status, ok := s.Zones[z]
	if !ok {
		status = newInProgressStatus()
		s.Zones[z] = status
	}
	return status
}

// StatusFor returns a zone's current status and whether it is tracked at
// all in this run.
func (s Status) StatusFor(z ids.ZoneCode) (LocationUpdateStatus, bool) {
	status, ok := s.Zones[z]
	return status, ok
}

// ActiveZones returns the zones still in progress.
func (s Status) ActiveZones() []ids.ZoneCode {
	return s.zonesWith(ZoneInProgress)
}

// SucceededZones returns the zones that reached Succeeded.
func (s Status) SucceededZones() []ids.ZoneCode {
	return s.zonesWith(ZoneSucceeded)
}

// FailedZones returns the zones that reached Failed.
func (s Status) FailedZones() []ids.ZoneCode {
	return s.zonesWith(ZoneFailed)
}

func (s Status) zonesWith(want ZoneStatus) []ids.ZoneCode {
	var zones []ids.ZoneCode
	for z, status := range s.Zones {
		if status.Status == want {
			zones = append(zones, z)
		}
	}
	return zones
}

// allZonesTerminal reports whether every tracked zone has reached
// Succeeded or Failed.
func (s Status) allZonesTerminal() bool {
	if len(s.Zones) == 0 {
		return false
	}
	for _, status := range s.Zones {
		if status.Status == ZoneInProgress {
			return false
		}
	}
	return true
}

// State is the saga aggregate reconstructed from the filtered event
// slice. Started distinguishes Quiescent (no UpdateStarted seen yet) from
// Active/Finished; Finished is derived, never stored directly.
type State struct {
	Started bool
	Status  Status
}

func ZeroState() State {
	return State{Status: zeroStatus()}
}

// IsFinished reports whether the saga has reached Finished: alerts have
// been reviewed and every tracked zone is terminal.
func (s State) IsFinished() bool {
	return s.Started && s.Status.AlertsReviewed && s.Status.allZonesTerminal()
}

// Reduce folds one persisted, update_id-tagged event into state.
func Reduce(state State, e eventlog.Event) State {
	switch e.Type {
	case EventUpdateStarted:
		var payload UpdateStartedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return state
		}
		state.Started = true
		state.Status = zeroStatus()
		for _, z := range payload.Zones {
			state.Status.prepZone(z)
		}

	case zone.EventObservationUpdated:
		status := state.Status.prepZone(ids.ZoneCode(e.Zone))
		state.Status.Zones[ids.ZoneCode(e.Zone)] = status.advance(StepObservation)

	case zone.EventForecastUpdated:
		status := state.Status.prepZone(ids.ZoneCode(e.Zone))
		state.Status.Zones[ids.ZoneCode(e.Zone)] = status.advance(StepForecast)

	case zone.EventAlertActivated, zone.EventAlertDeactivated:
		status := state.Status.prepZone(ids.ZoneCode(e.Zone))
		state.Status.Zones[ids.ZoneCode(e.Zone)] = status.advance(StepAlert)

	case EventUpdateLocationFailed:
		var payload UpdateLocationFailedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return state
		}
		status := state.Status.prepZone(payload.Zone)
		state.Status.Zones[payload.Zone] = status.fail(payload.Cause)

	case EventAlertsReviewed:
		state.Status.AlertsReviewed = true
	}

	return state
}
