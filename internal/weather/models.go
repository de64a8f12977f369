package weather

import (
	"math"
	"strconv"
	"time"
)

// Point is a requested location in WGS-84 degrees.
type Point struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

// ResolvedLocation is the grid cell a reader actually serves, which may
// differ from the requested point.
type ResolvedLocation struct {
	Lat       float64 `json:"latitude"`
	Lon       float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// CellSelection chooses between neighbouring grid cells near coastlines.
// Readers receive it unmodified.
type CellSelection string

const (
	CellNearest CellSelection = "nearest"
	CellLand    CellSelection = "land"
	CellSea     CellSelection = "sea"
)

// ParseCellSelection defaults to land selection when s is empty.
func ParseCellSelection(s string) (CellSelection, error) {
	switch CellSelection(s) {
	case "":
		return CellLand, nil
	case CellNearest, CellLand, CellSea:
		return CellSelection(s), nil
	}
	return "", invalid("cell_selection", s, "nearest, land, sea")
}

// Series is a time series aligned to a TimeWindow. NaN marks a missing
// value and is rendered as JSON null.
type Series []float32

// MarshalJSON writes NaN and infinities as null.
func (s Series) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(s)*6)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, f, 'f', -1, 32)
	}
	return append(buf, ']'), nil
}

// Column is one named output series.
type Column struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
	Data Series `json:"data"`
}

// Section groups columns sharing one time axis, e.g. "hourly" or "daily".
type Section struct {
	Name    string      `json:"name"`
	Time    []time.Time `json:"time"`
	Columns []Column    `json:"columns"`
}

// Result is the assembled answer to one forecast query.
type Result struct {
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Elevation            float64   `json:"elevation"`
	GenerationTimeMs     float64   `json:"generationtime_ms"`
	UTCOffsetSeconds     int       `json:"utc_offset_seconds"`
	Timezone             string    `json:"timezone"`
	TimezoneAbbreviation string    `json:"timezone_abbreviation"`
	Sections             []Section `json:"sections"`
}
