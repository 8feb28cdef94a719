package noaa

import (
	"context"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

// FixtureClient is a deterministic WeatherServices stand-in for local runs
// and tests: it returns canned, always-successful readings instead of
// calling out to the real provider.
type FixtureClient struct{}

func NewFixtureClient() FixtureClient { return FixtureClient{} }

func (FixtureClient) ZoneObservation(_ context.Context, _ ids.ZoneCode) (weather.Frame, error) {
	temp := weather.QuantitativeValue{Value: 72.0, MaxValue: 80.0, MinValue: 60.0, UnitCode: "degF", QualityControl: weather.GradeVerified}
	dewpoint := weather.QuantitativeValue{Value: 33.2, MaxValue: 36.3, MinValue: 26.2, UnitCode: "degF", QualityControl: weather.GradeCoarsePass}

	return weather.Frame{
		Timestamp:   time.Now().UTC(),
		Temperature: &temp,
		Dewpoint:    &dewpoint,
	}, nil
}

func (FixtureClient) ZoneForecast(_ context.Context, _ ids.ZoneType, zone ids.ZoneCode) (weather.ZoneForecast, error) {
	return weather.ZoneForecast{
		ZoneCode: string(zone),
		Updated:  time.Now().UTC(),
		Periods: []weather.ForecastDetail{
			{Name: "Rest of Day", Forecast: "Mostly cloudy. Highs in the lower to mid 70s. Light wind."},
		},
	}, nil
}

func (FixtureClient) ActiveAlerts(_ context.Context) ([]weather.Alert, error) {
	now := time.Now().UTC()
	onset := now.Add(-30 * time.Minute)
	ends := now.Add(time.Hour)
	headline := "High Wind Watch issued"
	instruction := "Monitor the latest forecasts and warnings for updates on this situation. " +
		"Fasten loose objects or shelter objects in a safe location prior to the onset of winds."

	return []weather.Alert{
		{
			AffectedZones: []string{"MDC031"},
			Status:        weather.AlertStatusActual,
			MessageType:   weather.AlertMessageTypeAlert,
			Sent:          now.Add(-time.Hour),
			Effective:     now.Add(-55 * time.Minute),
			Onset:         &onset,
			Expires:       now.Add(55 * time.Minute),
			Ends:          &ends,
			Category:      weather.AlertCategoryMet,
			Severity:      weather.AlertSeveritySevere,
			Certainty:     weather.AlertCertaintyPossible,
			Urgency:       weather.AlertUrgencyImmediate,
			Event:         "High Wind Watch",
			Headline:      &headline,
			Description: "* WHAT...South winds 30 to 40 mph with gusts up to 50 mph possible.\n" +
				"* WHERE...Portions of southeast Louisiana and southeast and southern Mississippi.\n" +
				"* WHEN...From Tuesday afternoon through late Tuesday night.\n" +
				"* IMPACTS...Damaging winds could blow down trees and power lines. " +
				"Widespread power outages are possible. Travel could be difficult, especially for high profile vehicles.",
			Instruction: &instruction,
			Response:    weather.AlertResponsePrepare,
		},
	}, nil
}
