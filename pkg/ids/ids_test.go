package ids_test

import (
	"testing"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZoneCode_Bare(t *testing.T) {
	zoneType, code, err := ids.ParseZoneCode("otis")
	require.NoError(t, err)
	assert.Equal(t, ids.ZoneType(""), zoneType)
	assert.Equal(t, ids.ZoneCode("otis"), code)
}

func TestParseZoneCode_URL(t *testing.T) {
	zoneType, code, err := ids.ParseZoneCode("https://api.weather.gov/zones/forecast/COZ040")
	require.NoError(t, err)
	assert.Equal(t, ids.ZoneTypeForecast, zoneType)
	assert.Equal(t, ids.ZoneCode("COZ040"), code)
}

func TestParseZoneCode_URLTooShort(t *testing.T) {
	_, _, err := ids.ParseZoneCode("https://api.weather.gov/COZ040")
	require.Error(t, err)
}

func TestParseZoneCode_Empty(t *testing.T) {
	_, _, err := ids.ParseZoneCode("")
	require.Error(t, err)
}

func TestNewUpdateID_Sortable(t *testing.T) {
	first := ids.NewUpdateID()
	second := ids.NewUpdateID()
	assert.NotEqual(t, first, second)
	assert.Less(t, first.String(), second.String())
}
