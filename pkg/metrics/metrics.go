// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsResolved tracks resolved query records by pass and match type
	RecordsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "records_resolved_total",
			Help:      "Total number of query records resolved, by pass and match type",
		},
		[]string{"pass", "match_type"},
	)

	// PassDuration tracks linkage pass duration in seconds
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "pass_duration_seconds",
			Help:      "Duration of linkage passes in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"pass"},
	)

	// BestScore tracks the best composite score found per query record
	BestScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "best_score",
			Help:      "Best composite score found per query record",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"pass"},
	)

	// CacheLookups tracks model cache lookups by role and result
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "modelcache",
			Name:      "lookups_total",
			Help:      "Total number of model cache lookups, by corpus role and result",
		},
		[]string{"role", "result"},
	)
)
