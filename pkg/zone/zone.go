// Package zone implements the three independent per-zone state slices:
// observation, forecast, and alert. Each slice has its own stream
// filter so concurrent commands on the same zone's different axes
// never contend on append.
package zone

import (
	"encoding/json"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

// Event type tags shared by the zone's three stream filters.
const (
	EventObservationUpdated = "ObservationUpdated"
	EventForecastUpdated    = "ForecastUpdated"
	EventAlertActivated     = "AlertActivated"
	EventAlertDeactivated   = "AlertDeactivated"
)

// ObservationFilter selects one zone's observation slice.
func ObservationFilter(zone ids.ZoneCode) eventlog.Filter {
	return eventlog.ByType(EventObservationUpdated).ForZone(string(zone))
}

// ForecastFilter selects one zone's forecast slice.
func ForecastFilter(zone ids.ZoneCode) eventlog.Filter {
	return eventlog.ByType(EventForecastUpdated).ForZone(string(zone))
}

// AlertFilter selects one zone's alert slice.
func AlertFilter(zone ids.ZoneCode) eventlog.Filter {
	return eventlog.ByType(EventAlertActivated, EventAlertDeactivated).ForZone(string(zone))
}

// ObservationState holds the latest observation frame for a zone, or none.
type ObservationState struct {
	Frame *weather.Frame
}

// ReduceObservation folds the observation slice into state; the latest
// ObservationUpdated event always wins since the slice is read in
// sequence order.
func ReduceObservation(state ObservationState, e eventlog.Event) ObservationState {
	if e.Type != EventObservationUpdated {
		return state
	}
	var frame weather.Frame
	if err := json.Unmarshal(e.Payload, &frame); err == nil {
		state.Frame = &frame
	}
	return state
}

// ForecastState holds the latest forecast for a zone, or none.
type ForecastState struct {
	Forecast *weather.ZoneForecast
}

func ReduceForecast(state ForecastState, e eventlog.Event) ForecastState {
	if e.Type != EventForecastUpdated {
		return state
	}
	var forecast weather.ZoneForecast
	if err := json.Unmarshal(e.Payload, &forecast); err == nil {
		state.Forecast = &forecast
	}
	return state
}

// AlertState holds the currently active alert for a zone, or none.
type AlertState struct {
	Alert *weather.Alert
}

// Active reports whether an alert is currently active for the zone.
func (s AlertState) Active() bool { return s.Alert != nil }

func ReduceAlert(state AlertState, e eventlog.Event) AlertState {
	switch e.Type {
	case EventAlertActivated:
		var alert weather.Alert
		if err := json.Unmarshal(e.Payload, &alert); err == nil {
			state.Alert = &alert
		}
	case EventAlertDeactivated:
		state.Alert = nil
	}
	return state
}
