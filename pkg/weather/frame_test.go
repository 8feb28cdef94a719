package weather_test

import (
	"testing"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func val(v float64) *float64 { return &v }

func TestAggregateFrame_HigherGradeReplacesLower(t *testing.T) {
	features := []weather.Feature{
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(50), UnitCode: "degF", Grade: weather.GradeCoarsePass}},
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(72), UnitCode: "degF", Grade: weather.GradeVerified}},
	}

	frame := weather.AggregateFrame(time.Now(), features)

	require.NotNil(t, frame.Temperature)
	assert.Equal(t, 72.0, frame.Temperature.Value)
	assert.Equal(t, weather.GradeVerified, frame.Temperature.QualityControl)
}

func TestAggregateFrame_EqualGradesCombine(t *testing.T) {
	features := []weather.Feature{
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(70), UnitCode: "degF", Grade: weather.GradeVerified}},
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(74), UnitCode: "degF", Grade: weather.GradeVerified}},
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(66), UnitCode: "degF", Grade: weather.GradeVerified}},
	}

	frame := weather.AggregateFrame(time.Now(), features)

	require.NotNil(t, frame.Temperature)
	assert.InDelta(t, 70.0, frame.Temperature.Value, 0.001)
	assert.Equal(t, 74.0, frame.Temperature.MaxValue)
	assert.Equal(t, 66.0, frame.Temperature.MinValue)
}

func TestAggregateFrame_LowerGradeDiscarded(t *testing.T) {
	features := []weather.Feature{
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(72), UnitCode: "degF", Grade: weather.GradeVerified}},
		{weather.PropertyTemperature: weather.PropertyDetail{Value: val(999), UnitCode: "degF", Grade: weather.GradeRejected}},
	}

	frame := weather.AggregateFrame(time.Now(), features)

	require.NotNil(t, frame.Temperature)
	assert.Equal(t, 72.0, frame.Temperature.Value)
}

func TestAggregateFrame_MissingValueContributesNothing(t *testing.T) {
	features := []weather.Feature{
		{weather.PropertyDewpoint: weather.PropertyDetail{Value: nil, Grade: weather.GradeVerified}},
	}

	frame := weather.AggregateFrame(time.Now(), features)

	assert.Nil(t, frame.Dewpoint)
}

func TestAggregateFrame_AbsentPropertyIsNil(t *testing.T) {
	frame := weather.AggregateFrame(time.Now(), nil)
	assert.Nil(t, frame.Temperature)
	assert.Nil(t, frame.WindSpeed)
}
