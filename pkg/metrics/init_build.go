package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBuildMetrics() {
	r.NodesBuiltTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_nodes_built_total",
			Help: "Total number of nodes created from source records",
		},
		[]string{"type"},
	)

	r.RecordsFilteredTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_records_filtered_total",
			Help: "Total number of source records rejected by a type filter",
		},
		[]string{"type"},
	)

	r.EdgesBuiltTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_edges_built_total",
			Help: "Total number of edges added to the graph",
		},
		[]string{"kind"},
	)

	r.EdgesDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_edges_dropped_total",
			Help: "Total number of edges dropped during build or encode",
		},
		[]string{"reason"},
	)

	r.PhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphize_phase_duration_seconds",
			Help:    "Duration of each export phase in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"phase"},
	)
}
