package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/ensemble-forecast/internal/observability"
	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// Warmer prefetches grid data for a location.
type Warmer interface {
	Warm(ctx context.Context, p weather.Point, models, variables []string) (int, error)
}

// Scheduler periodically warms the grid store for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	locations []weather.Point
	models    []string
	variables []string
	interval  time.Duration
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// New creates a new Scheduler.
func New(locations []weather.Point, models, variables []string, interval time.Duration, warmer Warmer, logger zerolog.Logger, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		warmer:    warmer,
		locations: locations,
		models:    models,
		variables: variables,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		metrics:   metrics,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 || len(s.variables) == 0 {
		s.logger.Info().Msg("no warm locations or variables configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every configured location concurrently and waits for all
// of them.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug().Int("locations", len(s.locations)).Msg("running warm job")

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			failed, err := s.warmer.Warm(s.logger.WithContext(ctx), loc, s.models, s.variables)
			if err != nil || failed > 0 {
				s.metrics.WarmRuns.WithLabelValues("error").Inc()
				s.logger.Warn().Err(err).
					Float64("latitude", loc.Lat).
					Float64("longitude", loc.Lon).
					Int("failed_prefetches", failed).
					Msg("warm failed")
				return
			}
			s.metrics.WarmRuns.WithLabelValues("ok").Inc()
		}()
	}
	wg.Wait()
	s.logger.Debug().Msg("completed warm job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
