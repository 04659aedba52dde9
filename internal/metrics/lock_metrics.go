package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockWaitDuration measures time a session blocked on a contended lock
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hlm_lock_wait_duration_seconds",
			Help:    "Time spent blocked acquiring hierarchical locks",
			Buckets: []float64{1e-6, 1e-5, 1e-4, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"level", "mode"}, // "top", "mid", "page"; "shared" or "exclusive"
	)

	// LockAcquisitionsTotal counts real (non-reentrant) acquisitions
	LockAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlm_lock_acquisitions_total",
			Help: "Total number of lock acquisitions that took the underlying lock",
		},
		[]string{"level", "mode"},
	)

	// LeafReentrantTotal counts page locks satisfied by the bucket owner check
	LeafReentrantTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hlm_leaf_reentrant_total",
			Help: "Total number of leaf cache acquisitions satisfied by reentrancy",
		},
	)

	// MidRegistrySize tracks the number of mid-level locks ever created
	MidRegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hlm_mid_registry_size",
			Help: "Number of mid-level read-write locks in the registry",
		},
	)

	// PagesReleasedTotal counts page locks released by reason
	PagesReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlm_pages_released_total",
			Help: "Total number of tracked pages released",
		},
		[]string{"reason"}, // "untagged", "except", "all"
	)

	// PagesRetainedTotal counts pages kept locked past a release point because of their tag
	PagesRetainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hlm_pages_retained_total",
			Help: "Total number of tagged pages retained at a release point",
		},
	)

	// GranularScopesActive tracks outermost granular scopes currently open
	GranularScopesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hlm_granular_scopes_active",
			Help: "Number of outermost granular scopes currently open",
		},
	)

	// ViolationsTotal counts fatal lock hierarchy assertions
	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlm_violations_total",
			Help: "Total number of lock hierarchy violations detected",
		},
		[]string{"type"},
	)
)
