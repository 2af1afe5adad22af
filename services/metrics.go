package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cascadeRowsTotal counts rows touched by cascades per action and table
	cascadeRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projenitor_cascade_rows_total",
		Help: "Rows touched by cascading soft delete, restore, level shift and purge",
	}, []string{"action", "table"})

	// cascadeDuration tracks cascade transaction latency
	cascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "projenitor_cascade_duration_seconds",
		Help:    "Cascade transaction duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"action"})

	cascadeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projenitor_cascade_errors_total",
		Help: "Cascades rolled back, by action",
	}, []string{"action"})

	hierarchyCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projenitor_hierarchy_cache_lookups_total",
		Help: "Hierarchy listing cache lookups by result",
	}, []string{"result"})
)

func observeCascade(action string, affected map[string]int64) {
	for table, rows := range affected {
		cascadeRowsTotal.WithLabelValues(action, table).Add(float64(rows))
	}
}
