package weather

import (
	"math"
	"strings"
)

// Aggregation reduces the hourly values of one day to a single value.
type Aggregation uint8

const (
	AggregateMax Aggregation = iota
	AggregateMin
	AggregateMean
	AggregateSum
	// AggregateRadiationSum integrates hourly mean W/m² into MJ/m².
	AggregateRadiationSum
	// AggregatePrecipitationHours counts hours with measurable precipitation.
	AggregatePrecipitationHours
	// AggregateDominantDirection is the speed weighted vector mean direction.
	AggregateDominantDirection
)

// DailyVariable is a daily aggregate of one (or, for dominant direction,
// two) hourly variables.
type DailyVariable struct {
	Name        string
	Aggregation Aggregation
	Source      Variable
	// Direction is only set for AggregateDominantDirection; Source then
	// holds the speed used as weight.
	Direction Variable
}

var dailyStatistics = map[string]Aggregation{
	"max":  AggregateMax,
	"min":  AggregateMin,
	"mean": AggregateMean,
}

// dailyStatisticSources can be asked for as <source>_max|_min|_mean.
var dailyStatisticSources = []string{
	"temperature_2m",
	"apparent_temperature",
	"windspeed_10m",
	"windgusts_10m",
	"pressure_msl",
	"surface_pressure",
	"cloudcover",
}

var dailySums = map[string]string{
	"precipitation_sum":          "precipitation",
	"rain_sum":                   "rain",
	"showers_sum":                "showers",
	"snowfall_sum":               "snowfall",
	"et0_fao_evapotranspiration": "et0_fao_evapotranspiration",
}

// ParseDailyVariable decodes a daily aggregate key.
func ParseDailyVariable(s string) (DailyVariable, bool) {
	switch s {
	case "shortwave_radiation_sum":
		return DailyVariable{Name: s, Aggregation: AggregateRadiationSum, Source: mustVariable("shortwave_radiation")}, true
	case "precipitation_hours":
		return DailyVariable{Name: s, Aggregation: AggregatePrecipitationHours, Source: mustVariable("precipitation")}, true
	case "winddirection_10m_dominant":
		return DailyVariable{
			Name:        s,
			Aggregation: AggregateDominantDirection,
			Source:      mustVariable("windspeed_10m"),
			Direction:   mustVariable("winddirection_10m"),
		}, true
	}
	if src, ok := dailySums[s]; ok {
		return DailyVariable{Name: s, Aggregation: AggregateSum, Source: mustVariable(src)}, true
	}
	pos := strings.LastIndexByte(s, '_')
	if pos <= 0 {
		return DailyVariable{}, false
	}
	agg, ok := dailyStatistics[s[pos+1:]]
	if !ok {
		return DailyVariable{}, false
	}
	for _, src := range dailyStatisticSources {
		if src == s[:pos] {
			return DailyVariable{Name: s, Aggregation: agg, Source: mustVariable(src)}, true
		}
	}
	return DailyVariable{}, false
}

// ParseDailyVariables decodes a list of keys, dropping duplicates and
// returning the unknown ones separately.
func ParseDailyVariables(names []string) (vars []DailyVariable, unknown []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		d, ok := ParseDailyVariable(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, d)
	}
	return vars, unknown
}

// Inputs are the hourly variables the aggregate is computed from.
func (d DailyVariable) Inputs() []Variable {
	if d.Aggregation == AggregateDominantDirection {
		return []Variable{d.Source, d.Direction}
	}
	return []Variable{d.Source}
}

func (d DailyVariable) Unit() string {
	switch d.Aggregation {
	case AggregateRadiationSum:
		return "MJ/m²"
	case AggregatePrecipitationHours:
		return "h"
	case AggregateDominantDirection:
		return "°"
	default:
		return d.Source.Unit()
	}
}

// precipitationThreshold in mm/h below which an hour counts as dry.
const precipitationThreshold = 0.001

// AggregateDaily reduces hourly input series (in Inputs order) to one value
// per day of hoursPerDay steps. Missing hours are ignored; a day without
// any value is missing.
func AggregateDaily(d DailyVariable, inputs []Series, hoursPerDay int) Series {
	days := len(inputs[0]) / hoursPerDay
	out := make(Series, days)
	for day := range out {
		from, to := day*hoursPerDay, (day+1)*hoursPerDay
		if d.Aggregation == AggregateDominantDirection {
			out[day] = float32(dominantDirection(inputs[0][from:to], inputs[1][from:to]))
			continue
		}
		out[day] = float32(reduce(d.Aggregation, inputs[0][from:to]))
	}
	return out
}

func reduce(agg Aggregation, hours Series) float64 {
	var (
		n   int
		sum float64
		hi  = math.Inf(-1)
		lo  = math.Inf(1)
		wet int
	)
	for _, v := range hours {
		if isMissing(v) {
			continue
		}
		f := float64(v)
		n++
		sum += f
		hi = math.Max(hi, f)
		lo = math.Min(lo, f)
		if f >= precipitationThreshold {
			wet++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	switch agg {
	case AggregateMax:
		return hi
	case AggregateMin:
		return lo
	case AggregateMean:
		return sum / float64(n)
	case AggregateRadiationSum:
		return sum * 0.0036
	case AggregatePrecipitationHours:
		return float64(wet)
	default:
		return sum
	}
}

func dominantDirection(speed, direction Series) float64 {
	var u, v float64
	n := 0
	for t := range speed {
		if isMissing(speed[t]) || isMissing(direction[t]) {
			continue
		}
		rad := float64(direction[t]) * math.Pi / 180
		u += float64(speed[t]) * math.Sin(rad)
		v += float64(speed[t]) * math.Cos(rad)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	deg := math.Atan2(u, v) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
