package weather

import "time"

// QuantitativeProperty names one of the quantitative fields a provider
// observation feature may carry.
type QuantitativeProperty string

const (
	PropertyTemperature              QuantitativeProperty = "temperature"
	PropertyDewpoint                 QuantitativeProperty = "dewpoint"
	PropertyWindDirection            QuantitativeProperty = "windDirection"
	PropertyWindSpeed                QuantitativeProperty = "windSpeed"
	PropertyWindGust                 QuantitativeProperty = "windGust"
	PropertyBarometricPressure       QuantitativeProperty = "barometricPressure"
	PropertySeaLevelPressure         QuantitativeProperty = "seaLevelPressure"
	PropertyVisibility               QuantitativeProperty = "visibility"
	PropertyMaxTemperatureLast24Hours QuantitativeProperty = "maxTemperatureLast24Hours"
	PropertyMinTemperatureLast24Hours QuantitativeProperty = "minTemperatureLast24Hours"
	PropertyPrecipitationLastHour    QuantitativeProperty = "precipitationLastHour"
	PropertyPrecipitationLast3Hours  QuantitativeProperty = "precipitationLast3Hours"
	PropertyPrecipitationLast6Hours  QuantitativeProperty = "precipitationLast6Hours"
	PropertyRelativeHumidity        QuantitativeProperty = "relativeHumidity"
	PropertyWindChill               QuantitativeProperty = "windChill"
	PropertyHeatIndex                QuantitativeProperty = "heatIndex"
)

// QuantitativeValue is the aggregated reading for one property across
// every feature in the observation response that carried it.
type QuantitativeValue struct {
	Value         float64 `json:"value"`
	MaxValue      float64 `json:"maxValue"`
	MinValue      float64 `json:"minValue"`
	UnitCode      string  `json:"unitCode"`
	QualityControl Grade  `json:"qualityControl"`
}

// PropertyDetail is one feature's raw reading for a single quantitative
// property before aggregation; Value is nil when the provider omitted it
// (e.g. a sensor outage), in which case the detail contributes nothing.
type PropertyDetail struct {
	Value    *float64
	UnitCode string
	Grade    Grade
}

// quantitativeAggregation accumulates PropertyDetail values for one
// property across a feature collection, applying the replace-or-combine
// rule: a strictly higher-grade detail replaces everything accumulated so
// far, an equal-grade detail folds in (count, sum, running min/max), and
// a strictly lower-grade detail is discarded.
type quantitativeAggregation struct {
	grade    Grade
	hasGrade bool
	count    int
	sum      float64
	min      float64
	max      float64
	unitCode string
}

func (a *quantitativeAggregation) addDetail(d PropertyDetail) {
	if d.Value == nil {
		return
	}

	switch {
	case !a.hasGrade || d.Grade.Rank() > a.grade.Rank():
		a.grade = d.Grade
		a.hasGrade = true
		a.count = 1
		a.sum = *d.Value
		a.min = *d.Value
		a.max = *d.Value
		a.unitCode = d.UnitCode

	case d.Grade.Rank() == a.grade.Rank():
		a.count++
		a.sum += *d.Value
		if *d.Value < a.min {
			a.min = *d.Value
		}
		if *d.Value > a.max {
			a.max = *d.Value
		}

	default:
		// strictly lower grade than what's already accumulated: discarded.
	}
}

func (a *quantitativeAggregation) finalize() (QuantitativeValue, bool) {
	if !a.hasGrade || a.count == 0 {
		return QuantitativeValue{}, false
	}
	return QuantitativeValue{
		Value:          a.sum / float64(a.count),
		MaxValue:       a.max,
		MinValue:       a.min,
		UnitCode:       a.unitCode,
		QualityControl: a.grade,
	}, true
}

// Frame is the aggregated observation for a zone at a point in time: one
// QuantitativeValue per property the provider reported, folded across
// every feature in the response's feature collection.
type Frame struct {
	Timestamp time.Time

	Temperature              *QuantitativeValue
	Dewpoint                 *QuantitativeValue
	WindDirection            *QuantitativeValue
	WindSpeed                *QuantitativeValue
	WindGust                 *QuantitativeValue
	BarometricPressure       *QuantitativeValue
	SeaLevelPressure         *QuantitativeValue
	Visibility               *QuantitativeValue
	MaxTemperatureLast24Hours *QuantitativeValue
	MinTemperatureLast24Hours *QuantitativeValue
	PrecipitationLastHour    *QuantitativeValue
	PrecipitationLast3Hours  *QuantitativeValue
	PrecipitationLast6Hours  *QuantitativeValue
	RelativeHumidity         *QuantitativeValue
	WindChill                *QuantitativeValue
	HeatIndex                *QuantitativeValue
}

// Feature is one observation station's reading, as a bag of property ->
// detail. This is the Go-native stand-in for a single GeoJSON Feature's
// properties object: the provider client is responsible for translating
// the wire GeoJSON into this shape before frame aggregation runs.
type Feature map[QuantitativeProperty]PropertyDetail

// AggregateFrame folds a feature collection (one or more stations' worth
// of readings) into a single Frame, applying the quality-control
// replace-or-combine rule independently per property.
func AggregateFrame(timestamp time.Time, features []Feature) Frame {
	aggs := make(map[QuantitativeProperty]*quantitativeAggregation, len(allProperties))
	for _, p := range allProperties {
		aggs[p] = &quantitativeAggregation{}
	}

	for _, feature := range features {
		for prop, detail := range feature {
			if agg, ok := aggs[prop]; ok {
				agg.addDetail(detail)
			}
		}
	}

	frame := Frame{Timestamp: timestamp}
	assign := func(p QuantitativeProperty, dst **QuantitativeValue) {
		if v, ok := aggs[p].finalize(); ok {
			*dst = &v
		}
	}

	assign(PropertyTemperature, &frame.Temperature)
	assign(PropertyDewpoint, &frame.Dewpoint)
	assign(PropertyWindDirection, &frame.WindDirection)
	assign(PropertyWindSpeed, &frame.WindSpeed)
	assign(PropertyWindGust, &frame.WindGust)
	assign(PropertyBarometricPressure, &frame.BarometricPressure)
	assign(PropertySeaLevelPressure, &frame.SeaLevelPressure)
	assign(PropertyVisibility, &frame.Visibility)
	assign(PropertyMaxTemperatureLast24Hours, &frame.MaxTemperatureLast24Hours)
	assign(PropertyMinTemperatureLast24Hours, &frame.MinTemperatureLast24Hours)
	assign(PropertyPrecipitationLastHour, &frame.PrecipitationLastHour)
	assign(PropertyPrecipitationLast3Hours, &frame.PrecipitationLast3Hours)
	assign(PropertyPrecipitationLast6Hours, &frame.PrecipitationLast6Hours)
	assign(PropertyRelativeHumidity, &frame.RelativeHumidity)
	assign(PropertyWindChill, &frame.WindChill)
	assign(PropertyHeatIndex, &frame.HeatIndex)

	return frame
}

// Quantitative reports whether p is one of the properties frame
// aggregation tracks. Provider responses interleave quantitative readings
// with metadata fields (station URL, timestamp, text description); a
// client uses this to keep only the former.
func Quantitative(p QuantitativeProperty) bool {
	for _, known := range allProperties {
		if p == known {
			return true
		}
	}
	return false
}

var allProperties = []QuantitativeProperty{
	PropertyTemperature, PropertyDewpoint, PropertyWindDirection, PropertyWindSpeed,
	PropertyWindGust, PropertyBarometricPressure, PropertySeaLevelPressure, PropertyVisibility,
	PropertyMaxTemperatureLast24Hours, PropertyMinTemperatureLast24Hours,
	PropertyPrecipitationLastHour, PropertyPrecipitationLast3Hours, PropertyPrecipitationLast6Hours,
	PropertyRelativeHumidity, PropertyWindChill, PropertyHeatIndex,
}
