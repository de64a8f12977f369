package weather

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

// fakeReader serves series computed by fn; a nil fn serves nothing.
type fakeReader struct {
	spec        GridSpec
	loc         ResolvedLocation
	fn          func(v EnsembleVariable, w TimeWindow) (Series, bool)
	getErr      error
	prefetchErr error

	gets       atomic.Int32
	prefetches atomic.Int32
}

func (r *fakeReader) Grid() GridSpec             { return r.spec }
func (r *fakeReader) Location() ResolvedLocation { return r.loc }

func (r *fakeReader) Prefetch(ctx context.Context, _ []EnsembleVariable, _ TimeWindow) error {
	r.prefetches.Add(1)
	return r.prefetchErr
}

func (r *fakeReader) Get(_ context.Context, v EnsembleVariable, w TimeWindow) (Series, bool, error) {
	r.gets.Add(1)
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	if r.fn == nil {
		return nil, false, nil
	}
	s, ok := r.fn(v, w)
	return s, ok, nil
}

// constant serves every listed stored variable of every member as a
// constant series.
func constant(values map[string]float32) func(EnsembleVariable, TimeWindow) (Series, bool) {
	return func(v EnsembleVariable, w TimeWindow) (Series, bool) {
		val, ok := values[v.Variable.String()]
		if !ok {
			return nil, false
		}
		return filled(w.Count, val), true
	}
}

func filled(n int, v float32) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = v
	}
	return s
}

var nan32 = float32(math.NaN())

// fakeFactory opens the reader registered for a grid when the grid bounds
// contain the point.
type fakeFactory struct {
	mu      sync.Mutex
	readers map[string]*fakeReader
	openErr map[string]error
	opened  []string
}

func newFakeFactory(readers ...*fakeReader) *fakeFactory {
	f := &fakeFactory{readers: make(map[string]*fakeReader), openErr: make(map[string]error)}
	for _, r := range readers {
		f.readers[r.spec.Name] = r
	}
	return f
}

func (f *fakeFactory) Open(_ context.Context, grid GridSpec, p Point, _ float64, _ CellSelection) (GridReader, error) {
	f.mu.Lock()
	f.opened = append(f.opened, grid.Name)
	f.mu.Unlock()

	if err, ok := f.openErr[grid.Name]; ok {
		return nil, err
	}
	r, ok := f.readers[grid.Name]
	if !ok || !grid.Bounds.Contains(p) {
		return nil, ErrNoCoverage
	}
	return r, nil
}

// gridReader builds a reader for a grid of the default registry.
func gridReader(name string, fn func(EnsembleVariable, TimeWindow) (Series, bool)) *fakeReader {
	spec, ok := DefaultRegistry().Grid(name)
	if !ok {
		panic("unknown grid " + name)
	}
	return &fakeReader{spec: spec, fn: fn}
}
