package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/ensemble-forecast/internal/observability"
)

// DefaultForecastDays is used when a query sets neither forecast_days nor
// explicit dates.
const DefaultForecastDays = 7

// MaxPastDays bounds the past_days parameter.
const MaxPastDays = 92

// Query is one ensemble forecast request.
type Query struct {
	Latitude  float64
	Longitude float64
	// Elevation overrides the grid cell elevation when set.
	Elevation     *float64
	Hourly        []string
	Daily         []string
	Models        []string
	CellSelection string

	Timezone     string
	ForecastDays *int
	PastDays     *int
	StartDate    string
	EndDate      string
}

// Validate checks the parameters that can be rejected before touching any
// grid.
func (q Query) Validate() error {
	if math.IsNaN(q.Latitude) || q.Latitude < -90 || q.Latitude > 90 {
		return invalid("latitude", q.Latitude, "-90..90")
	}
	if math.IsNaN(q.Longitude) || q.Longitude < -180 || q.Longitude > 180 {
		return invalid("longitude", q.Longitude, "-180..180")
	}
	if len(q.Daily) > 0 && q.Timezone == "" {
		return invalid("timezone", "", "required when daily variables are requested")
	}
	if q.ForecastDays != nil && (*q.ForecastDays <= 0 || *q.ForecastDays > MaxForecastDays) {
		return invalid("forecast_days", *q.ForecastDays, fmt.Sprintf("0..%d", MaxForecastDays))
	}
	if q.PastDays != nil && (*q.PastDays < 0 || *q.PastDays > MaxPastDays) {
		return invalid("past_days", *q.PastDays, fmt.Sprintf("0..%d", MaxPastDays))
	}
	return nil
}

func (q Query) timeQuery() TimeQuery {
	t := TimeQuery{
		Timezone:     q.Timezone,
		ForecastDays: DefaultForecastDays,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
	}
	if q.ForecastDays != nil {
		t.ForecastDays = *q.ForecastDays
	}
	if q.PastDays != nil {
		t.PastDays = *q.PastDays
	}
	return t
}

// Service answers ensemble forecast queries against a grid store.
type Service struct {
	registry *Registry
	factory  ReaderFactory
	clock    clockwork.Clock
	metrics  *observability.Metrics
}

// NewService creates a new Service.
func NewService(registry *Registry, factory ReaderFactory, clock clockwork.Clock, metrics *observability.Metrics) *Service {
	return &Service{
		registry: registry,
		factory:  factory,
		clock:    clock,
		metrics:  metrics,
	}
}

// Forecast resolves readers for every requested domain, prefetches, reads
// every (variable, member) with finest-grid-wins blending and assembles the
// hourly and daily sections.
func (s *Service) Forecast(ctx context.Context, q Query) (*Result, error) {
	start := s.clock.Now()
	res, err := s.forecast(ctx, q, start)
	s.metrics.RequestDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.Requests.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (s *Service) forecast(ctx context.Context, q Query, now time.Time) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	if err := q.Validate(); err != nil {
		return nil, err
	}
	domains, err := s.registry.ParseDomains(q.Models)
	if err != nil {
		return nil, err
	}
	mode, err := ParseCellSelection(q.CellSelection)
	if err != nil {
		return nil, err
	}
	rt, err := ResolveTimeWindow(q.timeQuery(), now, AllowedRange(now))
	if err != nil {
		return nil, err
	}

	hourlyVars, unknown := ParseVariables(q.Hourly)
	dailyVars, unknownDaily := ParseDailyVariables(q.Daily)
	if dropped := len(unknown) + len(unknownDaily); dropped > 0 {
		s.metrics.UnknownVariables.Add(float64(dropped))
		logger.Debug().Strs("hourly", unknown).Strs("daily", unknownDaily).Msg("dropping unknown variables")
	}

	elevation := math.NaN()
	if q.Elevation != nil {
		elevation = *q.Elevation
	}
	point := Point{Lat: q.Latitude, Lon: q.Longitude}

	mixed, err := s.selectAll(ctx, domains, point, elevation, mode)
	if err != nil {
		return nil, err
	}
	if len(mixed) == 0 {
		return nil, ErrNoDataForLocation
	}

	needed := append([]Variable(nil), hourlyVars...)
	for _, d := range dailyVars {
		needed = append(needed, d.Inputs()...)
	}
	s.prefetch(ctx, mixed, needed, rt.Hourly)

	multiDomain := len(domains) > 1
	var hourlyCols, dailyCols []Column
	for _, m := range mixed {
		f := newDomainFetch(m, rt.Hourly)
		cols, err := s.hourlyColumns(ctx, f, hourlyVars, multiDomain)
		if err != nil {
			return nil, err
		}
		hourlyCols = append(hourlyCols, cols...)

		cols, err = s.dailyColumns(ctx, f, dailyVars, rt, multiDomain)
		if err != nil {
			return nil, err
		}
		dailyCols = append(dailyCols, cols...)
	}

	loc := mixed[0].Finest().Location()
	res := &Result{
		Latitude:             loc.Lat,
		Longitude:            loc.Lon,
		Elevation:            loc.Elevation,
		UTCOffsetSeconds:     rt.UTCOffsetSeconds,
		Timezone:             rt.Timezone,
		TimezoneAbbreviation: rt.TimezoneAbbreviation,
	}
	if q.Elevation != nil {
		res.Elevation = *q.Elevation
	}
	if len(hourlyCols) > 0 {
		res.Sections = append(res.Sections, Section{Name: "hourly", Time: shifted(rt.Hourly, rt.DisplayShift), Columns: hourlyCols})
	}
	if len(dailyCols) > 0 {
		res.Sections = append(res.Sections, Section{Name: "daily", Time: shifted(rt.Daily(), rt.DisplayShift), Columns: dailyCols})
	}
	res.GenerationTimeMs = float64(s.clock.Since(now).Microseconds()) / 1000

	logger.Debug().
		Int("domains", len(mixed)).
		Int("hourly_columns", len(hourlyCols)).
		Int("daily_columns", len(dailyCols)).
		Msg("forecast assembled")
	return res, nil
}

func (s *Service) hourlyColumns(ctx context.Context, f *domainFetch, vars []Variable, multiDomain bool) ([]Column, error) {
	var cols []Column
	for _, ev := range Expand(f.reader.Domain, vars) {
		data, ok, err := f.get(ctx, ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.metrics.ColumnsAbsent.Inc()
			continue
		}
		mustHaveLen(data, f.window.Count, ev.String())
		cols = append(cols, Column{
			Name: ColumnName(ev.Variable.String(), ev.Member, f.reader.Domain.Name, multiDomain),
			Unit: ev.Variable.Unit(),
			Data: data,
		})
		s.metrics.ColumnsEmitted.Inc()
	}
	return cols, nil
}

func (s *Service) dailyColumns(ctx context.Context, f *domainFetch, vars []DailyVariable, rt ResolvedTime, multiDomain bool) ([]Column, error) {
	hoursPerDay := int(24 * time.Hour / rt.Hourly.Step)
	var cols []Column
	for _, d := range vars {
		for member := 0; member < f.reader.Domain.Members; member++ {
			inputs, ok, err := f.getAll(ctx, d.Inputs(), member)
			if err != nil {
				return nil, err
			}
			if !ok {
				s.metrics.ColumnsAbsent.Inc()
				continue
			}
			data := AggregateDaily(d, inputs, hoursPerDay)
			mustHaveLen(data, rt.Days(), d.Name)
			cols = append(cols, Column{
				Name: ColumnName(d.Name, member, f.reader.Domain.Name, multiDomain),
				Unit: d.Unit(),
				Data: data,
			})
			s.metrics.ColumnsEmitted.Inc()
		}
	}
	return cols, nil
}

// Warm opens the readers of the given domains at p and prefetches the
// variables over the default forecast window. It waits for the prefetches
// and reports how many failed.
func (s *Service) Warm(ctx context.Context, p Point, models, variables []string) (int, error) {
	domains, err := s.registry.ParseDomains(models)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	rt, err := ResolveTimeWindow(TimeQuery{ForecastDays: DefaultForecastDays}, now, AllowedRange(now))
	if err != nil {
		return 0, err
	}
	vars, _ := ParseVariables(variables)

	mixed, err := s.selectAll(ctx, domains, p, math.NaN(), CellLand)
	if err != nil {
		return 0, err
	}
	if len(mixed) == 0 {
		return 0, ErrNoDataForLocation
	}
	return s.prefetch(ctx, mixed, vars, rt.Hourly)(), nil
}

// selectAll opens readers for all domains concurrently. Domains without a
// covering grid are left out; the order of domains is kept.
func (s *Service) selectAll(ctx context.Context, domains []Domain, p Point, elevation float64, mode CellSelection) ([]MixedReader, error) {
	selected := make([][]GridReader, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range domains {
		g.Go(func() error {
			readers, err := SelectReaders(gctx, s.factory, d, p, elevation, mode)
			if err != nil {
				return fmt.Errorf("domain %s: %w", d.Name, err)
			}
			selected[i] = readers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mixed []MixedReader
	for i, readers := range selected {
		s.metrics.ReadersSelected.Observe(float64(len(readers)))
		s.metrics.GridsUncovered.Add(float64(len(domains[i].Grids) - len(readers)))
		if len(readers) == 0 {
			zerolog.Ctx(ctx).Debug().Str("domain", string(domains[i].Name)).Msg("no grid covers location")
			continue
		}
		mixed = append(mixed, MixedReader{Domain: domains[i], Readers: readers})
	}
	return mixed, nil
}

// prefetch starts an advisory prefetch on every reader and returns without
// waiting. Failures are logged and counted only. The returned function
// waits for all prefetches and returns the number that failed.
func (s *Service) prefetch(ctx context.Context, mixed []MixedReader, vars []Variable, window TimeWindow) func() int {
	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	if len(vars) == 0 {
		return func() int { return 0 }
	}
	for _, m := range mixed {
		evs := expandStored(m.Domain, vars)
		for _, r := range m.Readers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := r.Prefetch(ctx, evs, window); err != nil {
					failures.Add(1)
					s.metrics.PrefetchFailures.Inc()
					zerolog.Ctx(ctx).Debug().Err(err).Str("grid", r.Grid().Name).Msg("prefetch failed")
				}
			}()
		}
	}
	return func() int {
		wg.Wait()
		return int(failures.Load())
	}
}

// domainFetch memoizes blended reads of one domain within one request so
// daily aggregates and derived variables reuse hourly series.
type domainFetch struct {
	reader MixedReader
	window TimeWindow
	cache  map[EnsembleVariable]fetched
}

type fetched struct {
	series Series
	ok     bool
}

func newDomainFetch(m MixedReader, window TimeWindow) *domainFetch {
	return &domainFetch{reader: m, window: window, cache: make(map[EnsembleVariable]fetched)}
}

func (f *domainFetch) get(ctx context.Context, ev EnsembleVariable) (Series, bool, error) {
	if c, hit := f.cache[ev]; hit {
		return c.series, c.ok, nil
	}

	var (
		s   Series
		ok  bool
		err error
	)
	if ev.Variable.Derived {
		s, ok, err = f.derive(ctx, ev)
	} else {
		s, ok, err = f.reader.Get(ctx, ev, f.window)
	}
	if err != nil {
		return nil, false, err
	}
	f.cache[ev] = fetched{series: s, ok: ok}
	return s, ok, nil
}

// getAll reads every variable for one member; ok is false if any is absent.
func (f *domainFetch) getAll(ctx context.Context, vars []Variable, member int) ([]Series, bool, error) {
	out := make([]Series, len(vars))
	for i, v := range vars {
		s, ok, err := f.get(ctx, EnsembleVariable{Variable: v, Member: member})
		if err != nil || !ok {
			return nil, false, err
		}
		out[i] = s
	}
	return out, true, nil
}

func (f *domainFetch) derive(ctx context.Context, ev EnsembleVariable) (Series, bool, error) {
	d, ok := derivations[ev.Variable.Kind]
	if !ok {
		return nil, false, nil
	}
	inputs, ok, err := f.getAll(ctx, d.inputs(ev.Variable), ev.Member)
	if err != nil || !ok {
		return nil, false, err
	}
	return d.compute(inputs), true, nil
}

// mustHaveLen panics when a series does not match its time axis. That can
// only happen through a bug in a reader or aggregation.
func mustHaveLen(s Series, n int, name string) {
	if len(s) != n {
		panic(fmt.Sprintf("weather: column %s has %d values, time axis has %d", name, len(s), n))
	}
}

func shifted(w TimeWindow, shift time.Duration) []time.Time {
	times := w.Times()
	for i := range times {
		times[i] = times[i].Add(shift)
	}
	return times
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNoDataForLocation):
		return "no_data"
	default:
		return "error"
	}
}
