package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/ensemble-forecast/internal/api/http"
	"github.com/i474232898/ensemble-forecast/internal/config"
	"github.com/i474232898/ensemble-forecast/internal/observability"
	"github.com/i474232898/ensemble-forecast/internal/scheduler"
	"github.com/i474232898/ensemble-forecast/internal/store"
	"github.com/i474232898/ensemble-forecast/internal/weather"
	"github.com/i474232898/ensemble-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLogger("info", "json")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	factory, err := newReaderFactory(cfg, metrics, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up grid store")
	}

	// Core service resolving domains, grids and time windows.
	service := weather.NewService(weather.DefaultRegistry(), factory, clockwork.NewRealClock(), metrics)

	// Scheduler that periodically warms the grid store.
	sched := scheduler.New(cfg.WarmLocations, cfg.WarmDomains, cfg.WarmVariables, cfg.WarmInterval, service, log, metrics)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "ensemble-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
		// Query values outlive the handler in prefetch goroutines.
		Immutable: true,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ensemble-forecast",
			"backend": cfg.GridBackend,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, log)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

func newReaderFactory(cfg *config.AppConfig, metrics *observability.Metrics, log zerolog.Logger) (weather.ReaderFactory, error) {
	if cfg.GridBackend == config.BackendRemote {
		// Shared HTTP client for outbound grid store calls.
		httpClient := &http.Client{Timeout: cfg.GridStoreTimeout}
		log.Info().Str("url", cfg.GridStoreURL).Msg("using remote grid store")
		return providers.NewRemoteStore(cfg.GridStoreURL, httpClient, metrics), nil
	}

	memStore := store.NewMemoryStore(cfg.StoreMaxSeries)
	if cfg.GridSeedFile != "" {
		if err := store.LoadSeedFile(memStore, cfg.GridSeedFile); err != nil {
			return nil, err
		}
		log.Info().Str("file", cfg.GridSeedFile).Msg("seeded in-memory grid store")
	} else {
		log.Warn().Msg("in-memory grid store has no seed file; every location is uncovered")
	}
	return memStore, nil
}
