package weather

import (
	"strconv"
	"strings"
)

// Category is the vertical qualification of a variable.
type Category uint8

const (
	CategorySurface Category = iota
	CategoryPressure
	CategoryHeight
)

func (c Category) String() string {
	switch c {
	case CategoryPressure:
		return "pressure"
	case CategoryHeight:
		return "height"
	default:
		return "surface"
	}
}

// Variable identifies a physical quantity, optionally on a pressure or
// height level. Derived variables are not stored by any grid and are
// computed from stored components (see derived.go).
//
// The zero value is not a valid variable; use the constructors or
// ParseVariable.
type Variable struct {
	Category Category
	Kind     string
	Level    int
	Derived  bool
}

// vocabulary maps a kind to the unit its series are stored in.
type vocabulary map[string]string

var surfaceKinds = vocabulary{
	"temperature_2m":                   "°C",
	"relativehumidity_2m":              "%",
	"cloudcover":                       "%",
	"cloudcover_low":                   "%",
	"cloudcover_mid":                   "%",
	"cloudcover_high":                  "%",
	"pressure_msl":                     "hPa",
	"surface_pressure":                 "hPa",
	"precipitation":                    "mm",
	"showers":                          "mm",
	"rain":                             "mm",
	"snowfall":                         "cm",
	"windspeed_10m":                    "km/h",
	"winddirection_10m":                "°",
	"windgusts_10m":                    "km/h",
	"shortwave_radiation":              "W/m²",
	"direct_radiation":                 "W/m²",
	"diffuse_radiation":                "W/m²",
	"direct_normal_irradiance":         "W/m²",
	"terrestrial_radiation":            "W/m²",
	"shortwave_radiation_instant":      "W/m²",
	"direct_radiation_instant":         "W/m²",
	"diffuse_radiation_instant":        "W/m²",
	"direct_normal_irradiance_instant": "W/m²",
	"terrestrial_radiation_instant":    "W/m²",
	"et0_fao_evapotranspiration":       "mm",
	"lightning_potential":              "J/kg",
	"is_day":                           "",
}

var pressureKinds = vocabulary{
	"temperature":         "°C",
	"geopotential_height": "m",
	"relativehumidity":    "%",
	"windspeed":           "km/h",
	"winddirection":       "°",
	"cloudcover":          "%",
}

var heightKinds = vocabulary{
	"temperature":   "°C",
	"windspeed":     "km/h",
	"winddirection": "°",
}

var derivedSurfaceKinds = vocabulary{
	"dewpoint_2m":            "°C",
	"apparent_temperature":   "°C",
	"vapor_pressure_deficit": "kPa",
}

var derivedPressureKinds = vocabulary{
	"dewpoint": "°C",
}

func (v Variable) vocabulary() vocabulary {
	switch v.Category {
	case CategoryPressure:
		if v.Derived {
			return derivedPressureKinds
		}
		return pressureKinds
	case CategoryHeight:
		if v.Derived {
			return nil
		}
		return heightKinds
	default:
		if v.Derived {
			return derivedSurfaceKinds
		}
		return surfaceKinds
	}
}

// String encodes the variable as its stable key, e.g. "temperature_2m",
// "temperature_500hPa" or "windspeed_120m".
func (v Variable) String() string {
	switch v.Category {
	case CategoryPressure:
		return v.Kind + "_" + strconv.Itoa(v.Level) + "hPa"
	case CategoryHeight:
		return v.Kind + "_" + strconv.Itoa(v.Level) + "m"
	default:
		return v.Kind
	}
}

// Unit returns the unit series of this variable are expressed in.
func (v Variable) Unit() string {
	return v.vocabulary()[v.Kind]
}

// NewSurfaceVariable returns the surface variable of the given kind.
func NewSurfaceVariable(kind string) (Variable, bool) {
	return construct(Variable{Category: CategorySurface, Kind: kind})
}

// NewPressureVariable returns kind on the given pressure level in hPa.
func NewPressureVariable(kind string, levelHPa int) (Variable, bool) {
	return construct(Variable{Category: CategoryPressure, Kind: kind, Level: levelHPa})
}

// NewHeightVariable returns kind on the given height above ground in
// meters. Combinations whose key is already claimed by a surface variable
// (temperature_2m, windspeed_10m, ...) are not constructible.
func NewHeightVariable(kind string, levelMeters int) (Variable, bool) {
	return construct(Variable{Category: CategoryHeight, Kind: kind, Level: levelMeters})
}

// NewDerivedSurfaceVariable returns a computed surface variable.
func NewDerivedSurfaceVariable(kind string) (Variable, bool) {
	return construct(Variable{Category: CategorySurface, Kind: kind, Derived: true})
}

// NewDerivedPressureVariable returns a computed variable on a pressure level.
func NewDerivedPressureVariable(kind string, levelHPa int) (Variable, bool) {
	return construct(Variable{Category: CategoryPressure, Kind: kind, Level: levelHPa, Derived: true})
}

// construct accepts v only if decoding its key yields v again.
func construct(v Variable) (Variable, bool) {
	if v.Level < 0 || (v.Category == CategorySurface && v.Level != 0) {
		return Variable{}, false
	}
	if _, ok := v.vocabulary()[v.Kind]; !ok {
		return Variable{}, false
	}
	got, ok := ParseVariable(v.String())
	if !ok || got != v {
		return Variable{}, false
	}
	return v, true
}

type decoder struct {
	name    string
	derived bool
	decode  func(s string) (Variable, bool)
}

// decodeOrder is the priority in which categories claim a key: derived
// before stored, and within each, pressure before surface before height.
// Vocabularies are meant to be disjoint; any overlap is settled here.
var decodeOrder = []decoder{
	{name: "derived_pressure", derived: true, decode: levelDecoder(CategoryPressure, true)},
	{name: "derived_surface", derived: true, decode: surfaceDecoder(true)},
	{name: "pressure", decode: levelDecoder(CategoryPressure, false)},
	{name: "surface", decode: surfaceDecoder(false)},
	{name: "height", decode: levelDecoder(CategoryHeight, false)},
}

// ParseVariable decodes a key into a stored or derived variable. It never
// fails loudly: unknown or malformed keys report ok=false.
func ParseVariable(s string) (Variable, bool) {
	for _, d := range decodeOrder {
		if v, ok := d.decode(s); ok {
			return v, true
		}
	}
	return Variable{}, false
}

// ParseStoredVariable decodes a key into a variable a grid can store.
func ParseStoredVariable(s string) (Variable, bool) {
	for _, d := range decodeOrder {
		if d.derived {
			continue
		}
		if v, ok := d.decode(s); ok {
			return v, true
		}
	}
	return Variable{}, false
}

// ParseVariables decodes a list of keys, dropping duplicates. Keys that do
// not decode are returned separately so callers can report them.
func ParseVariables(names []string) (vars []Variable, unknown []string) {
	seen := make(map[Variable]bool, len(names))
	for _, name := range names {
		v, ok := ParseVariable(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		vars = append(vars, v)
	}
	return vars, unknown
}

func surfaceDecoder(derived bool) func(string) (Variable, bool) {
	return func(s string) (Variable, bool) {
		v := Variable{Category: CategorySurface, Kind: s, Derived: derived}
		if _, ok := v.vocabulary()[s]; !ok {
			return Variable{}, false
		}
		return v, true
	}
}

func levelDecoder(c Category, derived bool) func(string) (Variable, bool) {
	unit := "m"
	if c == CategoryPressure {
		unit = "hPa"
	}
	return func(s string) (Variable, bool) {
		kind, level, ok := splitLevel(s, unit)
		if !ok {
			return Variable{}, false
		}
		v := Variable{Category: c, Kind: kind, Level: level, Derived: derived}
		if _, ok := v.vocabulary()[kind]; !ok {
			return Variable{}, false
		}
		return v, true
	}
}

// splitLevel splits "<kind>_<level><unit>" where unit is anchored at the
// end and level is a non-negative decimal integer.
func splitLevel(s, unit string) (string, int, bool) {
	body, found := strings.CutSuffix(s, unit)
	if !found {
		return "", 0, false
	}
	pos := strings.LastIndexByte(body, '_')
	if pos <= 0 || pos == len(body)-1 {
		return "", 0, false
	}
	digits := body[pos+1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", 0, false
		}
	}
	level, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return body[:pos], level, true
}

func mustVariable(s string) Variable {
	v, ok := ParseVariable(s)
	if !ok {
		panic("weather: unknown variable " + s)
	}
	return v
}
