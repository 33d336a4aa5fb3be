package specparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

func TestParseDoorConfig_FullDescription(t *testing.T) {
	specs, ok := ParseDoorConfig("One swing solid door, self-closing, right hinged")
	require.True(t, ok)

	assert.Equal(t, 1.0, specs["door_count"].Number)
	assert.Equal(t, "solid", specs["door_type"].Text)
	assert.Equal(t, "right", specs["door_hinge"].Text)
	assert.Equal(t, []string{"self-closing"}, specs["door_features"].List)
}

func TestParseDoorConfig_SlidingGlass(t *testing.T) {
	specs, ok := ParseDoorConfig("Two sliding glass doors with keyed lock")
	require.True(t, ok)

	assert.Equal(t, 2.0, specs["door_count"].Number)
	assert.Equal(t, "glass_sliding", specs["door_type"].Text)
	assert.Contains(t, specs["door_features"].List, "keyed-lock")
}

func TestParseDoorConfig_CompoundCountWordWins(t *testing.T) {
	// "single" describes the door count, "double-pane" the glazing.
	specs, ok := ParseDoorConfig("Single sliding glass door, double-pane")
	require.True(t, ok)
	assert.Equal(t, 1.0, specs["door_count"].Number)
	assert.Equal(t, "glass_sliding", specs["door_type"].Text)
}

func TestParseDoorConfig_DigitCount(t *testing.T) {
	specs, ok := ParseDoorConfig("3 glass doors")
	require.True(t, ok)
	assert.Equal(t, 3.0, specs["door_count"].Number)
	assert.Equal(t, "glass", specs["door_type"].Text)
}

func TestParseDoorConfig_Unparseable(t *testing.T) {
	specs, ok := ParseDoorConfig("n/a")
	assert.False(t, ok)
	require.Contains(t, specs, "door_config")
	assert.True(t, specs["door_config"].ParseFailed)
	assert.Equal(t, "n/a", specs["door_config"].Text)
}

func TestParseShelfConfig_AdjustableWithIncrement(t *testing.T) {
	specs, ok := ParseShelfConfig(`Four adjustable shelves (adjustable in ½" increments)`)
	require.True(t, ok)

	assert.Equal(t, 4.0, specs["shelf_count"].Number)
	assert.Equal(t, "adjustable", specs["shelf_type"].Text)
	assert.Equal(t, 0.5, specs["shelf_adjustment_increment"].Number)
}

func TestParseShelfConfig_Mixed(t *testing.T) {
	specs, ok := ParseShelfConfig("2 fixed and 3 adjustable shelves")
	require.True(t, ok)
	assert.Equal(t, "mixed", specs["shelf_type"].Text)
}

func TestParseTemperatureRange_Celsius(t *testing.T) {
	specs, ok := ParseTemperatureRange("1°C to 10°C")
	require.True(t, ok)

	assert.Equal(t, 1.0, specs["temp_range_min_c"].Number)
	assert.Equal(t, 10.0, specs["temp_range_max_c"].Number)
}

func TestParseTemperatureRange_FahrenheitConversion(t *testing.T) {
	specs, ok := ParseTemperatureRange("-22°F to -13°F")
	require.True(t, ok)

	// -22F = -30C, -13F = -25C
	assert.InDelta(t, -30.0, specs["temp_range_min_c"].Number, 0.1)
	assert.InDelta(t, -25.0, specs["temp_range_max_c"].Number, 0.1)
}

func TestParseTemperatureRange_SwappedBounds(t *testing.T) {
	specs, ok := ParseTemperatureRange("10°C to 1°C")
	require.True(t, ok)
	assert.Equal(t, 1.0, specs["temp_range_min_c"].Number)
	assert.Equal(t, 10.0, specs["temp_range_max_c"].Number)
}

func TestParseTemperatureRange_SingleBound(t *testing.T) {
	specs, ok := ParseTemperatureRange("holds -30°C")
	require.True(t, ok)
	assert.Equal(t, -30.0, specs["temp_range_min_c"].Number)
	assert.NotContains(t, specs, "temp_range_max_c")
}

func TestParseTemperatureRange_Unparseable(t *testing.T) {
	specs, ok := ParseTemperatureRange("ultra cold")
	assert.False(t, ok)
	assert.True(t, specs["temperature_range"].ParseFailed)
}

func TestParseElectrical_Full(t *testing.T) {
	specs, ok := ParseElectrical("115V, 60 Hz, 3 Amps, 1/5 HP")
	require.True(t, ok)

	assert.Equal(t, 115.0, specs["voltage_v"].Number)
	assert.Equal(t, 60.0, specs["frequency_hz"].Number)
	assert.Equal(t, 3.0, specs["amperage"].Number)
	assert.InDelta(t, 0.2, specs["horsepower"].Number, 0.001)
}

func TestParseElectrical_VoltageRange(t *testing.T) {
	specs, ok := ParseElectrical("110-120V 60Hz")
	require.True(t, ok)

	assert.Equal(t, 110.0, specs["voltage_min"].Number)
	assert.Equal(t, 120.0, specs["voltage_max"].Number)
	assert.Equal(t, 115.0, specs["voltage_v"].Number)
}

func TestParseElectrical_Unparseable(t *testing.T) {
	specs, ok := ParseElectrical("hardwired")
	assert.False(t, ok)
	assert.True(t, specs["electrical"].ParseFailed)
}

func TestParseRefrigerant(t *testing.T) {
	specs, ok := ParseRefrigerant("R290 hydrocarbon refrigerant (EPA SNAP approved)")
	require.True(t, ok)
	assert.Equal(t, "R290", specs["refrigerant"].Text)

	specs, ok = ParseRefrigerant("R134a")
	require.True(t, ok)
	assert.Equal(t, "R134a", specs["refrigerant"].Text)

	_, ok = ParseRefrigerant("natural")
	assert.False(t, ok)
}

func TestParseCertifications_CanonicalSpellings(t *testing.T) {
	specs, ok := ParseCertifications("ETL, c-ETL, Energy Star, UL 471")
	require.True(t, ok)

	items := specs["certifications"].List
	assert.Equal(t, []string{"ETL", "C-ETL", "Energy_Star", "UL471"}, items)
}

func TestParseCertifications_SlashInsideCertName(t *testing.T) {
	// NSF/ANSI 456 must come back as one canonical token, not as the
	// fragments on either side of the slash.
	specs, ok := ParseCertifications("NSF/ANSI 456")
	require.True(t, ok)
	assert.Equal(t, []string{"NSF_ANSI_456"}, specs["certifications"].List)
}

func TestParseCertifications_UnrecognizedSegmentsSurvive(t *testing.T) {
	specs, ok := ParseCertifications("NSF/ANSI 456, TUV Rheinland")
	require.True(t, ok)
	assert.Equal(t, []string{"NSF_ANSI_456", "TUV_Rheinland"}, specs["certifications"].List)
}

func TestParseCertifications_Dedupes(t *testing.T) {
	specs, ok := ParseCertifications("ETL; ETL listed")
	require.True(t, ok)

	count := 0
	for _, c := range specs["certifications"].List {
		if c == "ETL" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParseFractionalDimension(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`23 ¾`, 23.75},
		{`23¾"`, 23.75},
		{`48 5⁄8`, 48.625},
		{`48 5/8"`, 48.625},
		{`30`, 30},
		{`½`, 0.5},
	}
	for _, tc := range cases {
		got, ok := ParseFractionalDimension(tc.raw)
		require.True(t, ok, tc.raw)
		assert.InDelta(t, tc.want, got, 0.001, tc.raw)
	}

	_, ok := ParseFractionalDimension("wide")
	assert.False(t, ok)
}

func TestFailedTextRoundTrip(t *testing.T) {
	v := storage.FailedText("mystery value")
	assert.True(t, v.ParseFailed)
	assert.Equal(t, "mystery value", v.Text)
}
