package weather

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredInputs(t *testing.T) {
	stored := mustVariable("temperature_2m")
	assert.Equal(t, []Variable{stored}, stored.StoredInputs())

	assert.Equal(t,
		[]Variable{mustVariable("temperature_850hPa"), mustVariable("relativehumidity_850hPa")},
		mustVariable("dewpoint_850hPa").StoredInputs())

	for kind := range derivedSurfaceKinds {
		v, ok := NewDerivedSurfaceVariable(kind)
		require.True(t, ok)
		for _, in := range v.StoredInputs() {
			assert.False(t, in.Derived, kind)
		}
	}
}

func TestDerivedFormulas(t *testing.T) {
	// Saturated air has its dewpoint at the air temperature.
	assert.InDelta(t, 20, dewpoint(20, 100), 1e-6)
	assert.InDelta(t, 9.26, dewpoint(20, 50), 0.05)

	assert.InDelta(t, 0, vaporPressureDeficit(20, 100), 1e-9)
	assert.InDelta(t, 1.17, vaporPressureDeficit(20, 50), 0.01)

	assert.Less(t, apparentTemperature(5, 50, 40), 5.0)
}

func TestZipWithPropagatesMissing(t *testing.T) {
	d := derivations["dewpoint_2m"]
	got := d.compute([]Series{{20, nan32}, {100, 50}})
	assert.InDelta(t, 20, float64(got[0]), 1e-4)
	assert.True(t, math.IsNaN(float64(got[1])))
}
