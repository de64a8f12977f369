package store

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/ensemble-forecast/internal/observability"
)

func clockworkAt(t time.Time) clockwork.Clock { return clockwork.NewFakeClockAt(t) }

func metricsForTesting() *observability.Metrics { return observability.NewMetricsForTesting() }

func intPtr(n int) *int { return &n }
