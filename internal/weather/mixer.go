package weather

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// SelectReaders opens every grid of d at p. Grids that do not cover the
// point are left out; the result keeps the coarse to fine order of the
// domain and may be empty.
func SelectReaders(ctx context.Context, factory ReaderFactory, d Domain, p Point, elevation float64, mode CellSelection) ([]GridReader, error) {
	opened := make([]GridReader, len(d.Grids))

	g, gctx := errgroup.WithContext(ctx)
	for i, grid := range d.Grids {
		g.Go(func() error {
			r, err := factory.Open(gctx, grid, p, elevation, mode)
			if errors.Is(err, ErrNoCoverage) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("open grid %s: %w", grid.Name, err)
			}
			opened[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	readers := make([]GridReader, 0, len(opened))
	for _, r := range opened {
		if r != nil {
			readers = append(readers, r)
		}
	}
	return readers, nil
}

// MixedReader blends the grids of one domain at one point. For every
// timestamp the finest grid with a value wins, coarser grids fill the rest.
type MixedReader struct {
	Domain  Domain
	Readers []GridReader // coarse to fine
}

// Finest returns the highest resolution reader.
func (m MixedReader) Finest() GridReader {
	return m.Readers[len(m.Readers)-1]
}

// Get reads v from the finest grid first and only consults coarser grids
// while gaps remain. ok is false when no grid produces v at all.
func (m MixedReader) Get(ctx context.Context, v EnsembleVariable, window TimeWindow) (Series, bool, error) {
	var (
		merged  Series
		missing int
	)
	for i := len(m.Readers) - 1; i >= 0; i-- {
		r := m.Readers[i]
		s, ok, err := r.Get(ctx, v, window)
		if err != nil {
			return nil, false, fmt.Errorf("read %s from %s: %w", v, r.Grid().Name, err)
		}
		if !ok {
			continue
		}
		if len(s) != window.Count {
			panic(fmt.Sprintf("weather: grid %s returned %d values of %s for a window of %d", r.Grid().Name, len(s), v, window.Count))
		}
		if merged == nil {
			merged = append(Series(nil), s...)
			missing = countMissing(merged)
		} else {
			missing -= fillGaps(merged, s)
		}
		if missing == 0 {
			break
		}
	}
	if merged == nil {
		return nil, false, nil
	}
	return merged, true, nil
}

// fillGaps copies values of coarser into the missing slots of finer and
// returns how many slots it filled.
func fillGaps(finer, coarser Series) int {
	filled := 0
	for t, v := range finer {
		if isMissing(v) && !isMissing(coarser[t]) {
			finer[t] = coarser[t]
			filled++
		}
	}
	return filled
}

func countMissing(s Series) int {
	n := 0
	for _, v := range s {
		if isMissing(v) {
			n++
		}
	}
	return n
}

func isMissing(v float32) bool {
	return math.IsNaN(float64(v))
}
