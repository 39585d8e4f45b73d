package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the scanning pipeline.
// Auto-registered via promauto; exposed through promhttp in each service main.

var (
	BarsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bars_ingested_total",
			Help: "Total number of bars ingested from the market data feed",
		},
		[]string{"source"},
	)

	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_reconnects_total",
			Help: "Total number of market data stream reconnect attempts",
		},
	)

	ScoresComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scores_computed_total",
			Help: "Total number of swing score computations",
		},
	)

	ScoresQualified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scores_qualified_total",
			Help: "Total number of score computations that passed the qualification gate",
		},
	)

	AlertsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Total number of alerts created",
		},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_suppressed_total",
			Help: "Total number of alerts suppressed by the gate",
		},
		[]string{"reason"},
	)

	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of session poller cycles",
		},
		[]string{"session", "status"},
	)

	ScoringInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoring_in_flight",
			Help: "Number of score computations currently running",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)
)
