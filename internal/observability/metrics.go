package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ensemble_forecast"

// Metrics holds the Prometheus collectors of the forecast service.
type Metrics struct {
	Requests        *prometheus.CounterVec // labels: outcome={ok,invalid,no_data,error}
	RequestDuration prometheus.Histogram

	ReadersSelected  prometheus.Histogram
	GridsUncovered   prometheus.Counter
	UnknownVariables prometheus.Counter

	ColumnsEmitted prometheus.Counter
	ColumnsAbsent  prometheus.Counter

	PrefetchFailures prometheus.Counter

	// Grid store client metrics.
	GridStoreDuration *prometheus.HistogramVec // labels: operation={open,prefetch,get}

	WarmRuns *prometheus.CounterVec // labels: outcome={ok,error}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.ReadersSelected,
		m.GridsUncovered,
		m.UnknownVariables,
		m.ColumnsEmitted,
		m.ColumnsAbsent,
		m.PrefetchFailures,
		m.GridStoreDuration,
		m.WarmRuns,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Forecast queries by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of forecast query processing.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ReadersSelected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "readers_selected",
			Help:      "Grid readers covering the requested point per domain.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		}),
		GridsUncovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grids_uncovered_total",
			Help:      "Constituent grids skipped because they do not cover the point.",
		}),
		UnknownVariables: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_variables_total",
			Help:      "Requested variable names that did not decode and were dropped.",
		}),
		ColumnsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_emitted_total",
			Help:      "Output columns written to responses.",
		}),
		ColumnsAbsent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_absent_total",
			Help:      "Requested columns omitted because no grid produces the variable.",
		}),
		PrefetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_failures_total",
			Help:      "Advisory prefetch calls that failed and were ignored.",
		}),
		GridStoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_store_duration_seconds",
			Help:      "Remote grid store request duration.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		WarmRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warm_runs_total",
			Help:      "Scheduled warm-up prefetches by outcome.",
		}, []string{"outcome"}),
	}
}
