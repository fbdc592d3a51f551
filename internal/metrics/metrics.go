package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for TableQueriesTotal.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

var (
	// Table sync
	TableQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paser_table_queries_total",
		Help: "Attribute table queries completed, by dataset and outcome",
	}, []string{"dataset", "outcome"})

	FeatureQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paser_feature_query_duration_seconds",
		Help:    "Time taken by a feature source query",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
	}, []string{"dataset"})

	// Category catalog
	CatalogLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paser_catalog_loads_total",
		Help: "Category catalog loads, by outcome (loaded, empty, failed)",
	}, []string{"outcome"})

	// Symbology
	RendererAssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paser_renderer_assignments_total",
		Help: "Renderers assigned to layers, by dataset",
	}, []string{"dataset"})

	UnmatchedSelectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paser_unmatched_category_selections_total",
		Help: "Category selections ignored because no value matched",
	})

	// Sessions
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paser_live_sessions",
		Help: "Current number of live controller sessions",
	})
)
