package weather

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailyVariable(t *testing.T) {
	tests := []struct {
		name   string
		agg    Aggregation
		inputs []string
		unit   string
	}{
		{"temperature_2m_max", AggregateMax, []string{"temperature_2m"}, "°C"},
		{"apparent_temperature_min", AggregateMin, []string{"apparent_temperature"}, "°C"},
		{"cloudcover_mean", AggregateMean, []string{"cloudcover"}, "%"},
		{"precipitation_sum", AggregateSum, []string{"precipitation"}, "mm"},
		{"shortwave_radiation_sum", AggregateRadiationSum, []string{"shortwave_radiation"}, "MJ/m²"},
		{"precipitation_hours", AggregatePrecipitationHours, []string{"precipitation"}, "h"},
		{"winddirection_10m_dominant", AggregateDominantDirection, []string{"windspeed_10m", "winddirection_10m"}, "°"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseDailyVariable(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.agg, d.Aggregation)
			assert.Equal(t, tt.unit, d.Unit())

			var inputs []string
			for _, v := range d.Inputs() {
				inputs = append(inputs, v.String())
			}
			assert.Equal(t, tt.inputs, inputs)
		})
	}

	for _, s := range []string{"temperature_2m", "temperature_2m_median", "rain_max", "_max", "max"} {
		_, ok := ParseDailyVariable(s)
		assert.False(t, ok, s)
	}
}

func TestParseDailyVariables(t *testing.T) {
	vars, unknown := ParseDailyVariables([]string{"rain_sum", "x", "rain_sum"})
	require.Len(t, vars, 1)
	assert.Equal(t, "rain_sum", vars[0].Name)
	assert.Equal(t, []string{"x"}, unknown)
}

func TestAggregateDaily(t *testing.T) {
	day := func(values ...float32) Series {
		s := filled(4, nan32)
		copy(s, values)
		return s
	}
	hourly := append(day(1, 4, 2, 3), day(0, 0.0005, 0.5)...)

	tests := []struct {
		name string
		want []float64
	}{
		{"temperature_2m_max", []float64{4, 0.5}},
		{"temperature_2m_min", []float64{1, 0}},
		{"temperature_2m_mean", []float64{2.5, 0.5005 / 3}},
		{"precipitation_sum", []float64{10, 0.5005}},
		{"precipitation_hours", []float64{4, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseDailyVariable(tt.name)
			require.True(t, ok)
			got := AggregateDaily(d, []Series{hourly}, 4)
			require.Len(t, got, 2)
			for i, want := range tt.want {
				assert.InDelta(t, want, float64(got[i]), 1e-5)
			}
		})
	}
}

func TestAggregateDailyMissingDay(t *testing.T) {
	d, _ := ParseDailyVariable("rain_sum")
	got := AggregateDaily(d, []Series{{1, 1, nan32, nan32}}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, float32(2), got[0])
	assert.True(t, math.IsNaN(float64(got[1])))
}

func TestAggregateRadiationSum(t *testing.T) {
	d, _ := ParseDailyVariable("shortwave_radiation_sum")
	got := AggregateDaily(d, []Series{filled(24, 500)}, 24)
	// 24 h at 500 W/m² is 43.2 MJ/m².
	assert.InDelta(t, 43.2, float64(got[0]), 1e-3)
}

func TestDominantDirection(t *testing.T) {
	d, _ := ParseDailyVariable("winddirection_10m_dominant")
	speed := Series{10, 10, 1}
	direction := Series{350, 10, 180}
	got := AggregateDaily(d, []Series{speed, direction}, 3)
	require.Len(t, got, 1)
	// Two strong northerly hours dominate the weak southerly one.
	assert.InDelta(t, 0, math.Min(float64(got[0]), 360-float64(got[0])), 1e-3)
}
