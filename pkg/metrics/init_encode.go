package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEncodeMetrics() {
	r.RemoteCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_remote_calls_total",
			Help: "Total number of remote graph protocol calls",
		},
		[]string{"operation", "status"},
	)

	r.RemoteCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphize_remote_call_duration_seconds",
			Help:    "Remote graph protocol call duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	r.BytesWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_bytes_written_total",
			Help: "Total bytes written to output sinks",
		},
		[]string{"output"},
	)

	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphize_runs_total",
			Help: "Total number of export runs",
		},
		[]string{"output", "status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphize_run_duration_seconds",
			Help:    "Export run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600, 1800},
		},
		[]string{"output"},
	)

	r.LastRunSuccessTime = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphize_last_success_timestamp_seconds",
			Help: "Unix time of the last successful export run",
		},
	)

	r.LastRunGraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphize_last_run_nodes",
			Help: "Number of nodes in the last built graph",
		},
	)

	r.LastRunGraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphize_last_run_edges",
			Help: "Number of edges in the last built graph",
		},
	)
}
