package store

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// seriesKey identifies one stored series inside a grid.
type seriesKey = weather.EnsembleVariable

// storedSeries is a run of values at a fixed step.
type storedSeries struct {
	start  time.Time
	step   time.Duration
	values []float32
}

type gridData struct {
	elevation float64
	series    map[seriesKey]storedSeries
	// insertion order, oldest first, for retention
	order []seriesKey
}

// MemoryStore is a concurrency-safe in-memory grid store. A grid holds one
// series per ensemble variable which is served at every cell of the grid.
type MemoryStore struct {
	mu sync.RWMutex

	// key: grid name
	grids map[string]*gridData

	// retention configuration
	maxSeries int // max number of series per grid

	prefetches atomic.Int64
}

// NewMemoryStore creates a new MemoryStore.
// If maxSeries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxSeries int) *MemoryStore {
	return &MemoryStore{
		grids:     make(map[string]*gridData),
		maxSeries: maxSeries,
	}
}

// AddGrid registers a grid with the elevation reported for its cells.
// Grids that were never added do not cover any point.
func (s *MemoryStore) AddGrid(name string, elevation float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.grids[name]; ok {
		g.elevation = elevation
		return
	}
	s.grids[name] = &gridData{elevation: elevation, series: make(map[seriesKey]storedSeries)}
}

// Put stores values of v in grid starting at start. The grid is added with
// elevation 0 if it is unknown. Storing the same variable again replaces it.
func (s *MemoryStore) Put(grid string, v weather.EnsembleVariable, start time.Time, step time.Duration, values []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grids[grid]
	if !ok {
		g = &gridData{series: make(map[seriesKey]storedSeries)}
		s.grids[grid] = g
	}

	if _, exists := g.series[v]; !exists {
		g.order = append(g.order, v)
	}
	g.series[v] = storedSeries{
		start:  start.UTC(),
		step:   step,
		values: append([]float32(nil), values...),
	}

	// Enforce retention by count.
	if s.maxSeries > 0 && len(g.order) > s.maxSeries {
		over := len(g.order) - s.maxSeries
		for _, k := range g.order[:over] {
			delete(g.series, k)
		}
		g.order = g.order[over:]
	}
}

// Prefetches returns how many prefetch calls readers of this store received.
func (s *MemoryStore) Prefetches() int64 {
	return s.prefetches.Load()
}

// Open implements weather.ReaderFactory.
func (s *MemoryStore) Open(ctx context.Context, spec weather.GridSpec, p weather.Point, elevation float64, mode weather.CellSelection) (weather.GridReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !spec.Bounds.Contains(p) {
		return nil, weather.ErrNoCoverage
	}

	s.mu.RLock()
	g, ok := s.grids[spec.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, weather.ErrNoCoverage
	}

	loc := weather.ResolvedLocation{
		Lat:       snap(p.Lat, spec.CellDegrees, spec.Bounds.LatMin, spec.Bounds.LatMax),
		Lon:       snap(p.Lon, spec.CellDegrees, spec.Bounds.LonMin, spec.Bounds.LonMax),
		Elevation: g.elevation,
	}
	// A sea cell has no terrain to report.
	if mode == weather.CellSea {
		loc.Elevation = math.Min(loc.Elevation, 0)
	}

	return &memoryReader{store: s, spec: spec, loc: loc}, nil
}

// snap moves v to the nearest cell centre of a grid with the given spacing,
// staying inside [lo, hi].
func snap(v, cell, lo, hi float64) float64 {
	if cell <= 0 {
		return v
	}
	snapped := lo + math.Round((v-lo)/cell)*cell
	snapped = math.Max(lo, math.Min(hi, snapped))
	// drop float noise from the multiplication
	return math.Round(snapped*1e6) / 1e6
}

type memoryReader struct {
	store *MemoryStore
	spec  weather.GridSpec
	loc   weather.ResolvedLocation
}

func (r *memoryReader) Grid() weather.GridSpec {
	return r.spec
}

func (r *memoryReader) Location() weather.ResolvedLocation {
	return r.loc
}

func (r *memoryReader) Prefetch(ctx context.Context, _ []weather.EnsembleVariable, _ weather.TimeWindow) error {
	r.store.prefetches.Add(1)
	return ctx.Err()
}

func (r *memoryReader) Get(ctx context.Context, v weather.EnsembleVariable, window weather.TimeWindow) (weather.Series, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	g, ok := r.store.grids[r.spec.Name]
	if !ok {
		return nil, false, nil
	}
	stored, ok := g.series[v]
	if !ok {
		return nil, false, nil
	}
	return stored.resample(window), true, nil
}

// resample aligns the stored values to window. Timestamps between two
// stored steps are interpolated linearly; outside the stored run they are
// missing.
func (s storedSeries) resample(window weather.TimeWindow) weather.Series {
	out := make(weather.Series, window.Count)
	last := len(s.values) - 1
	for i, t := range window.Times() {
		out[i] = float32(math.NaN())
		if last < 0 || s.step <= 0 {
			continue
		}
		offset := t.Sub(s.start)
		if offset < 0 || offset > time.Duration(last)*s.step {
			continue
		}
		idx := int(offset / s.step)
		rem := offset % s.step
		if rem == 0 {
			out[i] = s.values[idx]
			continue
		}
		frac := float32(rem) / float32(s.step)
		out[i] = s.values[idx] + (s.values[idx+1]-s.values[idx])*frac
	}
	return out
}
