// Package metrics exposes Prometheus instrumentation for the signal engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesTotal counts positions opened, labeled by size tier.
	EntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketmate",
		Name:      "entries_total",
		Help:      "Positions opened, by size tier",
	}, []string{"tier"})

	// ExitsTotal counts exits executed, labeled by reason.
	ExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketmate",
		Name:      "exits_total",
		Help:      "Position exits executed, by reason",
	}, []string{"reason"})

	// OpenPositions tracks currently open or partial positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketmate",
		Name:      "open_positions",
		Help:      "Positions currently open or partially exited",
	})

	// ScanErrorsTotal counts per-ticker evaluation failures during scans.
	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketmate",
		Name:      "scan_errors_total",
		Help:      "Ticker evaluations excluded from a cycle due to errors",
	})

	// ScanCandidatesTotal counts candidates produced by scan cycles.
	ScanCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marketmate",
		Name:      "scan_candidates_total",
		Help:      "Scored candidates produced by scan cycles",
	})

	// BacktestDuration observes wall-clock runtime of backtest runs.
	BacktestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "marketmate",
		Name:      "backtest_duration_seconds",
		Help:      "Backtest run duration",
		Buckets:   prometheus.DefBuckets,
	})
)
