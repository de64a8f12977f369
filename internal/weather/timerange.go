package weather

import (
	"time"
	// Embedded zone database for minimal container images.
	_ "time/tzdata"
)

// TimeWindow is an ordered run of UTC timestamps at a fixed step.
type TimeWindow struct {
	Start time.Time
	Step  time.Duration
	Count int
}

// End is the exclusive end of the window.
func (w TimeWindow) End() time.Time {
	return w.Start.Add(time.Duration(w.Count) * w.Step)
}

// Times lists every timestamp of the window.
func (w TimeWindow) Times() []time.Time {
	out := make([]time.Time, w.Count)
	for i := range out {
		out[i] = w.Start.Add(time.Duration(i) * w.Step)
	}
	return out
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// EarliestData is the first day ensemble data is archived for.
var EarliestData = time.Date(2022, 6, 8, 0, 0, 0, 0, time.UTC)

// MaxForecastDays is the rolling upper bound of servable data.
const MaxForecastDays = 16

// AllowedRange is the window of servable data relative to now.
func AllowedRange(now time.Time) TimeRange {
	return TimeRange{Start: EarliestData, End: now.Add(MaxForecastDays * 24 * time.Hour)}
}

// TimeQuery are the time related request parameters.
type TimeQuery struct {
	Timezone     string
	ForecastDays int
	PastDays     int
	StartDate    string // YYYY-MM-DD, inclusive
	EndDate      string // YYYY-MM-DD, inclusive
}

// ResolvedTime is the outcome of window resolution for one request.
type ResolvedTime struct {
	Timezone             string
	TimezoneAbbreviation string
	// UTCOffsetSeconds is the actual offset of the timezone at request time.
	UTCOffsetSeconds int
	// Hourly starts at local midnight, using the offset truncated to whole
	// hours so grid timestamps stay on the hour.
	Hourly TimeWindow
	// DisplayShift moves grid timestamps so they read as full local hours
	// under the actual offset.
	DisplayShift time.Duration
}

// Days is the number of whole local days in the window.
func (r ResolvedTime) Days() int {
	return r.Hourly.Count * int(r.Hourly.Step) / int(24*time.Hour)
}

// Daily is the window with one step per local day.
func (r ResolvedTime) Daily() TimeWindow {
	return TimeWindow{Start: r.Hourly.Start, Step: 24 * time.Hour, Count: r.Days()}
}

const dateLayout = "2006-01-02"

// ResolveTimeWindow turns the time parameters into an hourly window in the
// requested timezone and checks it against allowed.
func ResolveTimeWindow(q TimeQuery, now time.Time, allowed TimeRange) (ResolvedTime, error) {
	loc, name, err := resolveTimezone(q.Timezone)
	if err != nil {
		return ResolvedTime{}, err
	}
	abbrev, actual := now.In(loc).Zone()
	offset := time.Duration(actual/3600*3600) * time.Second

	var start, end time.Time
	switch {
	case q.StartDate != "" || q.EndDate != "":
		if q.StartDate == "" || q.EndDate == "" {
			return ResolvedTime{}, invalid("start_date", q.StartDate+"/"+q.EndDate, "both start_date and end_date")
		}
		first, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			return ResolvedTime{}, invalid("start_date", q.StartDate, "YYYY-MM-DD")
		}
		last, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			return ResolvedTime{}, invalid("end_date", q.EndDate, "YYYY-MM-DD")
		}
		if last.Before(first) {
			return ResolvedTime{}, invalid("end_date", q.EndDate, "on or after start_date")
		}
		start = first.Add(-offset)
		end = last.Add(24*time.Hour - offset)
	default:
		midnight := now.UTC().Add(offset).Truncate(24 * time.Hour).Add(-offset)
		start = midnight.Add(-time.Duration(q.PastDays) * 24 * time.Hour)
		end = midnight.Add(time.Duration(q.ForecastDays) * 24 * time.Hour)
	}

	// The last day must begin inside the allowed range.
	if start.Before(allowed.Start) || !end.Add(-24*time.Hour).Before(allowed.End) {
		return ResolvedTime{}, invalid("time",
			start.Format(dateLayout)+" to "+end.Add(-24*time.Hour).Format(dateLayout),
			allowed.Start.Format(dateLayout)+" to "+allowed.End.Format(dateLayout))
	}

	return ResolvedTime{
		Timezone:             name,
		TimezoneAbbreviation: abbrev,
		UTCOffsetSeconds:     actual,
		Hourly: TimeWindow{
			Start: start,
			Step:  time.Hour,
			Count: int(end.Sub(start) / time.Hour),
		},
		DisplayShift: offset - time.Duration(actual)*time.Second,
	}, nil
}

// resolveTimezone maps the timezone parameter to a location. Coordinate
// based lookup is not available, so "auto" resolves to UTC.
func resolveTimezone(name string) (*time.Location, string, error) {
	switch name {
	case "", "GMT":
		return time.FixedZone("GMT", 0), "GMT", nil
	case "auto", "UTC":
		return time.UTC, "UTC", nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, "", invalid("timezone", name, "an IANA timezone name or auto")
	}
	return loc, loc.String(), nil
}
