package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordNodes records nodes built and records filtered for a type
func (r *Registry) RecordNodes(typeName string, built, filtered int) {
	r.NodesBuiltTotal.WithLabelValues(typeName).Add(float64(built))
	r.RecordsFilteredTotal.WithLabelValues(typeName).Add(float64(filtered))
}

// RecordEdges records edges added to the graph by discovery kind
func (r *Registry) RecordEdges(kind string, n int) {
	r.EdgesBuiltTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordDroppedEdges records edges that were discarded
func (r *Registry) RecordDroppedEdges(reason string, n int) {
	if n == 0 {
		return
	}
	r.EdgesDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// ObservePhase records the duration of an export phase
func (r *Registry) ObservePhase(phase string, duration time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordRemoteCall records a remote graph protocol call
func (r *Registry) RecordRemoteCall(operation, status string, duration time.Duration) {
	r.RemoteCallsTotal.WithLabelValues(operation, status).Inc()
	r.RemoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytesWritten records bytes committed to an output sink
func (r *Registry) RecordBytesWritten(output string, n int64) {
	r.BytesWrittenTotal.WithLabelValues(output).Add(float64(n))
}

// RecordRun records the outcome of an export run
func (r *Registry) RecordRun(output, status string, duration time.Duration, nodes, edges int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.RunsTotal.WithLabelValues(output, status).Inc()
	r.RunDuration.WithLabelValues(output).Observe(duration.Seconds())
	if status == "success" {
		r.LastRunSuccessTime.SetToCurrentTime()
		r.LastRunGraphNodes.Set(float64(nodes))
		r.LastRunGraphEdges.Set(float64(edges))
	}
}

// WriteTextfile writes all metrics in Prometheus text format, suitable for
// the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
