package weather

import (
	"math"
	"strconv"
)

// derivation computes a derived variable from stored component series of
// the same member. Components are listed in the order compute expects them.
type derivation struct {
	inputs  func(v Variable) []Variable
	compute func(in []Series) Series
}

var derivations = map[string]derivation{
	"dewpoint_2m": {
		inputs: fixedInputs("temperature_2m", "relativehumidity_2m"),
		compute: func(in []Series) Series {
			return zipWith(in, func(x []float64) float64 { return dewpoint(x[0], x[1]) })
		},
	},
	"apparent_temperature": {
		inputs: fixedInputs("temperature_2m", "relativehumidity_2m", "windspeed_10m"),
		compute: func(in []Series) Series {
			return zipWith(in, func(x []float64) float64 { return apparentTemperature(x[0], x[1], x[2]) })
		},
	},
	"vapor_pressure_deficit": {
		inputs: fixedInputs("temperature_2m", "relativehumidity_2m"),
		compute: func(in []Series) Series {
			return zipWith(in, func(x []float64) float64 { return vaporPressureDeficit(x[0], x[1]) })
		},
	},
	"dewpoint": {
		inputs: func(v Variable) []Variable {
			level := strconv.Itoa(v.Level)
			return []Variable{
				mustVariable("temperature_" + level + "hPa"),
				mustVariable("relativehumidity_" + level + "hPa"),
			}
		},
		compute: func(in []Series) Series {
			return zipWith(in, func(x []float64) float64 { return dewpoint(x[0], x[1]) })
		},
	},
}

// StoredInputs lists the stored variables needed to produce v. A stored
// variable is its own input.
func (v Variable) StoredInputs() []Variable {
	if !v.Derived {
		return []Variable{v}
	}
	d, ok := derivations[v.Kind]
	if !ok {
		return nil
	}
	return d.inputs(v)
}

func fixedInputs(names ...string) func(Variable) []Variable {
	return func(Variable) []Variable {
		vars := make([]Variable, len(names))
		for i, n := range names {
			vars[i] = mustVariable(n)
		}
		return vars
	}
}

// zipWith applies fn element-wise. Missing values propagate as NaN.
func zipWith(in []Series, fn func(x []float64) float64) Series {
	out := make(Series, len(in[0]))
	x := make([]float64, len(in))
	for t := range out {
		for i, s := range in {
			x[i] = float64(s[t])
		}
		out[t] = float32(fn(x))
	}
	return out
}

// saturationVaporPressure in hPa over water (Magnus).
func saturationVaporPressure(tempC float64) float64 {
	return 6.1078 * math.Exp(17.27*tempC/(tempC+237.3))
}

func dewpoint(tempC, relhum float64) float64 {
	const a, b = 17.625, 243.04
	alpha := math.Log(relhum/100) + a*tempC/(b+tempC)
	return b * alpha / (a - alpha)
}

// vaporPressureDeficit in kPa.
func vaporPressureDeficit(tempC, relhum float64) float64 {
	es := saturationVaporPressure(tempC) / 10
	return math.Max(es*(1-relhum/100), 0)
}

// apparentTemperature is the Steadman shade formula; wind in km/h.
func apparentTemperature(tempC, relhum, windKmh float64) float64 {
	e := relhum / 100 * saturationVaporPressure(tempC)
	return tempC + 0.33*e - 0.70*windKmh/3.6 - 4.0
}
