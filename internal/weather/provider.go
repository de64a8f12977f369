package weather

import (
	"context"
)

// GridReader reads one model grid at one point. Handles are request scoped
// and read only.
type GridReader interface {
	Grid() GridSpec
	// Location is the grid cell actually served.
	Location() ResolvedLocation
	// Prefetch is advisory: it may warm caches in the store, and its
	// outcome never changes what Get returns.
	Prefetch(ctx context.Context, vars []EnsembleVariable, window TimeWindow) error
	// Get returns a series aligned to window, or ok=false when the grid does
	// not produce the variable.
	Get(ctx context.Context, v EnsembleVariable, window TimeWindow) (Series, bool, error)
}

// ReaderFactory opens grid readers. Open returns ErrNoCoverage when the
// point lies outside the grid.
type ReaderFactory interface {
	Open(ctx context.Context, grid GridSpec, p Point, elevation float64, mode CellSelection) (GridReader, error)
}
