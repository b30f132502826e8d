package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for an export run
type Registry struct {
	// Build Metrics
	NodesBuiltTotal      *prometheus.CounterVec
	RecordsFilteredTotal *prometheus.CounterVec
	EdgesBuiltTotal      *prometheus.CounterVec
	EdgesDroppedTotal    *prometheus.CounterVec
	PhaseDuration        *prometheus.HistogramVec

	// Encode Metrics
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	BytesWrittenTotal  *prometheus.CounterVec
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	LastRunSuccessTime prometheus.Gauge
	LastRunGraphNodes  prometheus.Gauge
	LastRunGraphEdges  prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initBuildMetrics()
	r.initEncodeMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
