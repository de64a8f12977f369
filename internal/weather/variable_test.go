package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressureLevelCodec(t *testing.T) {
	v, ok := NewPressureVariable("temperature", 500)
	require.True(t, ok)
	assert.Equal(t, "temperature_500hPa", v.String())

	got, ok := ParseVariable("temperature_500hPa")
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, ok = ParseVariable("temperature_abchPa")
	assert.False(t, ok)
}

// allConstructible enumerates a representative set of every category.
func allConstructible(t *testing.T) []Variable {
	t.Helper()
	var vars []Variable
	for kind := range surfaceKinds {
		v, ok := NewSurfaceVariable(kind)
		require.True(t, ok, kind)
		vars = append(vars, v)
	}
	for kind := range derivedSurfaceKinds {
		v, ok := NewDerivedSurfaceVariable(kind)
		require.True(t, ok, kind)
		vars = append(vars, v)
	}
	for _, level := range []int{10, 250, 500, 850, 1000} {
		for kind := range pressureKinds {
			v, ok := NewPressureVariable(kind, level)
			require.True(t, ok, kind)
			vars = append(vars, v)
		}
		v, ok := NewDerivedPressureVariable("dewpoint", level)
		require.True(t, ok)
		vars = append(vars, v)
	}
	for _, level := range []int{80, 120, 180} {
		for kind := range heightKinds {
			v, ok := NewHeightVariable(kind, level)
			require.True(t, ok, kind)
			vars = append(vars, v)
		}
	}
	return vars
}

func TestVariableRoundTrip(t *testing.T) {
	for _, v := range allConstructible(t) {
		got, ok := ParseVariable(v.String())
		require.True(t, ok, v.String())
		assert.Equal(t, v, got, v.String())
		if v.Kind != "is_day" {
			assert.NotEmpty(t, v.Unit(), v.String())
		}
	}
}

func TestParseVariableRadiationAndDaylight(t *testing.T) {
	for _, tc := range []struct {
		key  string
		unit string
	}{
		{"terrestrial_radiation", "W/m²"},
		{"terrestrial_radiation_instant", "W/m²"},
		{"shortwave_radiation_instant", "W/m²"},
		{"diffuse_radiation_instant", "W/m²"},
		{"direct_radiation_instant", "W/m²"},
		{"direct_normal_irradiance_instant", "W/m²"},
		{"is_day", ""},
	} {
		v, ok := ParseVariable(tc.key)
		require.True(t, ok, tc.key)
		assert.Equal(t, CategorySurface, v.Category, tc.key)
		assert.False(t, v.Derived, tc.key)
		assert.Equal(t, tc.key, v.String())
		assert.Equal(t, tc.unit, v.Unit(), tc.key)

		e, ok := ParseEnsembleVariable(tc.key + "_member07")
		require.True(t, ok, tc.key)
		assert.Equal(t, tc.key+"_member07", e.String())
	}
}

func TestParseVariableRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"temperature",
		"temperature_500",
		"temperature_hPa",
		"temperature_-5hPa",
		"temperature_5.5hPa",
		"temperature_500hPa_",
		"_500hPa",
		"temperature_500HPA",
		"snow_depth",
		"windspeed_m",
		"windspeed_10mm",
		"dewpoint",
		"temperature_2m_member01",
	} {
		_, ok := ParseVariable(s)
		assert.False(t, ok, s)
	}
}

func TestDecodeOrder(t *testing.T) {
	names := make([]string, len(decodeOrder))
	for i, d := range decodeOrder {
		names[i] = d.name
	}
	assert.Equal(t, []string{"derived_pressure", "derived_surface", "pressure", "surface", "height"}, names)

	// Keys claimed by a surface variable never decode as height.
	v, ok := ParseVariable("temperature_2m")
	require.True(t, ok)
	assert.Equal(t, CategorySurface, v.Category)

	v, ok = ParseVariable("windspeed_10m")
	require.True(t, ok)
	assert.Equal(t, CategorySurface, v.Category)

	v, ok = ParseVariable("windspeed_80m")
	require.True(t, ok)
	assert.Equal(t, Variable{Category: CategoryHeight, Kind: "windspeed", Level: 80}, v)

	v, ok = ParseVariable("dewpoint_850hPa")
	require.True(t, ok)
	assert.True(t, v.Derived)
}

func TestConstructorsRejectUnrepresentable(t *testing.T) {
	_, ok := NewHeightVariable("temperature", 2)
	assert.False(t, ok, "temperature_2m belongs to the surface vocabulary")

	_, ok = NewHeightVariable("windspeed", 10)
	assert.False(t, ok)

	_, ok = NewPressureVariable("temperature", -1)
	assert.False(t, ok)

	_, ok = NewPressureVariable("lightning_potential", 500)
	assert.False(t, ok)

	_, ok = NewSurfaceVariable("temperature")
	assert.False(t, ok)

	_, ok = NewDerivedPressureVariable("temperature", 500)
	assert.False(t, ok)
}

func TestParseStoredVariableSkipsDerived(t *testing.T) {
	_, ok := ParseStoredVariable("dewpoint_2m")
	assert.False(t, ok)

	v, ok := ParseStoredVariable("relativehumidity_700hPa")
	require.True(t, ok)
	assert.False(t, v.Derived)
}

func TestParseVariables(t *testing.T) {
	vars, unknown := ParseVariables([]string{"temperature_2m", "bogus", "temperature_2m", "cloudcover_500hPa"})
	assert.Equal(t, []Variable{
		mustVariable("temperature_2m"),
		mustVariable("cloudcover_500hPa"),
	}, vars)
	assert.Equal(t, []string{"bogus"}, unknown)
}
