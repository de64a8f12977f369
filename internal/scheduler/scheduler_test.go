package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/ensemble-forecast/internal/observability"
	"github.com/i474232898/ensemble-forecast/internal/weather"
)

type fakeWarmer struct {
	mu     sync.Mutex
	points []weather.Point
	failAt weather.Point
}

func (f *fakeWarmer) Warm(ctx context.Context, p weather.Point, models, variables []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	if p == f.failAt {
		return 0, weather.ErrNoDataForLocation
	}
	return 0, nil
}

func TestRunOnce(t *testing.T) {
	warmer := &fakeWarmer{failAt: weather.Point{Lat: -33.92, Lon: 18.42}}
	metrics := observability.NewMetricsForTesting()
	locations := []weather.Point{{Lat: 52.52, Lon: 13.41}, {Lat: -33.92, Lon: 18.42}, {Lat: 48.14, Lon: 11.58}}

	s := New(locations, []string{"icon_seamless"}, []string{"temperature_2m"}, time.Minute, warmer, zerolog.Nop(), metrics)
	s.RunOnce(context.Background())

	assert.ElementsMatch(t, locations, warmer.points)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WarmRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WarmRuns.WithLabelValues("error")))
}

func TestStartWithoutLocations(t *testing.T) {
	s := New(nil, nil, []string{"temperature_2m"}, time.Minute, &fakeWarmer{}, zerolog.Nop(), observability.NewMetricsForTesting())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartSchedulesJob(t *testing.T) {
	s := New([]weather.Point{{Lat: 1, Lon: 1}}, nil, []string{"rain"}, 0, &fakeWarmer{}, zerolog.Nop(), observability.NewMetricsForTesting())
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.scheduler.Jobs(), 1)
}
