package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// object is a JSON object that keeps its key order.
type object []field

type field struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

const (
	hourLayout = "2006-01-02T15:04"
	dayLayout  = "2006-01-02"
)

// render lays a result out as one object per section plus a units object,
// e.g. "hourly" and "hourly_units".
func render(res *weather.Result, timeFormat string) object {
	out := object{
		{"latitude", res.Latitude},
		{"longitude", res.Longitude},
		{"generationtime_ms", res.GenerationTimeMs},
		{"utc_offset_seconds", res.UTCOffsetSeconds},
		{"timezone", res.Timezone},
		{"timezone_abbreviation", res.TimezoneAbbreviation},
		{"elevation", jsonNumber(res.Elevation)},
	}

	offset := time.Duration(res.UTCOffsetSeconds) * time.Second
	for _, s := range res.Sections {
		layout := hourLayout
		if s.Name == "daily" {
			layout = dayLayout
		}

		units := object{{"time", timeFormat}}
		values := object{{"time", formatTimes(s.Time, offset, timeFormat, layout)}}
		for _, col := range s.Columns {
			units = append(units, field{col.Name, col.Unit})
			values = append(values, field{col.Name, col.Data})
		}
		out = append(out, field{s.Name + "_units", units}, field{s.Name, values})
	}
	return out
}

// formatTimes renders local wall clock strings or unix seconds.
func formatTimes(times []time.Time, offset time.Duration, timeFormat, layout string) any {
	if timeFormat == "unixtime" {
		out := make([]int64, len(times))
		for i, t := range times {
			out[i] = t.Unix()
		}
		return out
	}
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.UTC().Add(offset).Format(layout)
	}
	return out
}

func jsonNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
