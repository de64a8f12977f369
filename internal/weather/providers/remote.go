package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/ensemble-forecast/internal/observability"
	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// RemoteStore implements weather.ReaderFactory on top of an HTTP grid
// store:
//
//	GET  /v1/grids/{grid}/cell      resolve a point to a cell, 404 if uncovered
//	POST /v1/grids/{grid}/prefetch  warm a set of series of one cell
//	GET  /v1/grids/{grid}/series    read one series, 404 if not produced
//
// Prefetches are advisory: they are sent once and run behind their own
// breaker so a failing warm-up never blocks cell and series reads.
type RemoteStore struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker

	prefetchCircuit *gobreaker.CircuitBreaker

	metrics *observability.Metrics
}

func NewRemoteStore(baseURL string, client *http.Client, metrics *observability.Metrics) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 200 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		circuit:         newCircuitBreaker("gridstore"),
		prefetchCircuit: newCircuitBreaker("gridstore-prefetch"),
		metrics:         metrics,
	}
}

// WithBackoff replaces the retry settings.
func (s *RemoteStore) WithBackoff(b BackoffConfig) *RemoteStore {
	s.httpCfg.Backoff = b
	return s
}

type cellResponse struct {
	Cell      string  `json:"cell"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

type prefetchRequest struct {
	Cell      string   `json:"cell"`
	Variables []string `json:"variables"`
	Start     int64    `json:"start"`
	Step      int64    `json:"step"`
	Count     int      `json:"count"`
}

type seriesResponse struct {
	Values []*float32 `json:"values"`
}

// Open implements weather.ReaderFactory.
func (s *RemoteStore) Open(ctx context.Context, grid weather.GridSpec, p weather.Point, elevation float64, mode weather.CellSelection) (weather.GridReader, error) {
	if !grid.Bounds.Contains(p) {
		return nil, weather.ErrNoCoverage
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	values.Set("cell_selection", string(mode))
	if !math.IsNaN(elevation) {
		values.Set("elevation", strconv.FormatFloat(elevation, 'f', -1, 64))
	}

	var cell cellResponse
	found, err := s.getJSON(ctx, "open", s.gridURL(grid.Name, "cell", values), &cell)
	if err != nil {
		return nil, fmt.Errorf("resolve cell: %w", err)
	}
	if !found {
		return nil, weather.ErrNoCoverage
	}

	return &remoteReader{
		store: s,
		grid:  grid,
		cell:  cell.Cell,
		loc: weather.ResolvedLocation{
			Lat:       cell.Latitude,
			Lon:       cell.Longitude,
			Elevation: cell.Elevation,
		},
	}, nil
}

func (s *RemoteStore) gridURL(grid, op string, values url.Values) string {
	u := fmt.Sprintf("%s/v1/grids/%s/%s", s.baseURL, url.PathEscape(grid), op)
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}

// getJSON decodes the body of a GET into out. found is false on 404.
func (s *RemoteStore) getJSON(ctx context.Context, operation, u string, out any) (found bool, err error) {
	defer s.observe(operation, time.Now())

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RemoteStore) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.GridStoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

type remoteReader struct {
	store *RemoteStore
	grid  weather.GridSpec
	cell  string
	loc   weather.ResolvedLocation
}

func (r *remoteReader) Grid() weather.GridSpec {
	return r.grid
}

func (r *remoteReader) Location() weather.ResolvedLocation {
	return r.loc
}

func (r *remoteReader) Prefetch(ctx context.Context, vars []weather.EnsembleVariable, window weather.TimeWindow) error {
	defer r.store.observe("prefetch", time.Now())

	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	body, err := json.Marshal(prefetchRequest{
		Cell:      r.cell,
		Variables: names,
		Start:     window.Start.Unix(),
		Step:      int64(window.Step / time.Second),
		Count:     window.Count,
	})
	if err != nil {
		return err
	}

	u := r.store.gridURL(r.grid.Name, "prefetch", nil)
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	cfg := r.store.httpCfg
	cfg.Backoff.MaxRetries = 0
	resp, err := doRequestWithResilience(ctx, cfg, r.store.prefetchCircuit, buildRequest)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("prefetch %s: cell %s unknown", r.grid.Name, r.cell)
	}
	return nil
}

func (r *remoteReader) Get(ctx context.Context, v weather.EnsembleVariable, window weather.TimeWindow) (weather.Series, bool, error) {
	values := url.Values{}
	values.Set("cell", r.cell)
	values.Set("variable", v.String())
	values.Set("start", strconv.FormatInt(window.Start.Unix(), 10))
	values.Set("step", strconv.FormatInt(int64(window.Step/time.Second), 10))
	values.Set("count", strconv.Itoa(window.Count))

	var payload seriesResponse
	found, err := r.store.getJSON(ctx, "get", r.store.gridURL(r.grid.Name, "series", values), &payload)
	if err != nil || !found {
		return nil, false, err
	}
	if len(payload.Values) != window.Count {
		return nil, false, fmt.Errorf("grid store returned %d values of %s, want %d", len(payload.Values), v, window.Count)
	}

	out := make(weather.Series, len(payload.Values))
	for i, val := range payload.Values {
		if val == nil {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = *val
	}
	return out, true, nil
}
