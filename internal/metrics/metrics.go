// Package metrics exposes the engine's Prometheus instrumentation: one
// outcome counter per provider lookup, run-level totals, and run duration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeDisabled = "disabled"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	LookupOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_lookup_outcomes_total",
			Help: "Provider lookup outcomes by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	TracksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_tracks_processed_total",
			Help: "Tracks that completed a reconciliation pass",
		},
	)

	TrackErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_track_errors_total",
			Help: "Per-track errors (lookup or storage) across all runs",
		},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_storage_errors_total",
			Help: "Storage write failures by operation",
		},
		[]string{"operation"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracking_run_duration_seconds",
			Help:    "Duration of full-set reconciliation runs",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1s .. ~4.5h
		},
	)

	RunsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_runs_coalesced_total",
			Help: "Scheduler firings dropped because a run was in progress",
		},
	)
)
