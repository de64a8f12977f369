package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/ensemble-forecast/internal/common"
	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// Grid store backends.
const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type AppConfig struct {
	Port string

	LogLevel  string
	LogFormat string // json or console

	// GridBackend selects where grid data is read from.
	GridBackend      string
	GridStoreURL     string
	GridStoreTimeout time.Duration

	// In-memory backend.
	GridSeedFile   string
	StoreMaxSeries int // max number of series per grid (0 = unlimited)

	// WarmInterval controls how often the warm locations are prefetched.
	WarmInterval  time.Duration
	WarmLocations []weather.Point
	WarmDomains   []string
	WarmVariables []string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.GridBackend = getenvDefault("GRID_BACKEND", BackendMemory)
	switch cfg.GridBackend {
	case BackendMemory:
	case BackendRemote:
		cfg.GridStoreURL = strings.TrimSuffix(os.Getenv("GRID_STORE_URL"), "/")
		if cfg.GridStoreURL == "" {
			return nil, fmt.Errorf("GRID_STORE_URL is required for the %s backend", BackendRemote)
		}
	default:
		return nil, fmt.Errorf("invalid GRID_BACKEND %q: want %s or %s", cfg.GridBackend, BackendRemote, BackendMemory)
	}

	var err error
	if cfg.GridStoreTimeout, err = getenvDuration("GRID_STORE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.GridSeedFile = os.Getenv("GRID_SEED_FILE")
	cfg.StoreMaxSeries = getenvInt("STORE_MAX_SERIES", 0)

	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.WarmLocations, err = parseLocations(os.Getenv("WARM_LOCATIONS")); err != nil {
		return nil, err
	}
	cfg.WarmDomains = common.SplitList(os.Getenv("WARM_DOMAINS"))
	cfg.WarmVariables = common.SplitList(os.Getenv("WARM_VARIABLES"))

	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseLocations reads "lat:lon;lat:lon".
func parseLocations(s string) ([]weather.Point, error) {
	var locs []weather.Point
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lat, lon, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS entry %q: want lat:lon", item)
		}
		p := weather.Point{}
		var err error
		if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil || p.Lat < -90 || p.Lat > 90 {
			return nil, fmt.Errorf("invalid latitude in WARM_LOCATIONS entry %q", item)
		}
		if p.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("invalid longitude in WARM_LOCATIONS entry %q", item)
		}
		locs = append(locs, p)
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
