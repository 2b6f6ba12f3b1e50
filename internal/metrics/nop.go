// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/atomenv/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// EnvironmentMetrics implementation

// RecordNeighborListBuild discards the neighbor search metric.
func (n *NopMetrics) RecordNeighborListBuild(_ /* atoms */ int, _ /* duration */ float64) {}

// RecordViewsBuilt discards the views built metric.
func (n *NopMetrics) RecordViewsBuilt(_ /* count */ int) {}

// RecordStage discards the staging metric.
func (n *NopMetrics) RecordStage(_ /* views */ int, _ /* duration */ float64) {}

// DistributionMetrics implementation

// RecordGather discards the gather metric.
func (n *NopMetrics) RecordGather(_ /* views */ int, _ /* duration */ float64, _ /* distributed */ bool) {
}

// RecordScratchOperation discards the scratch operation metric.
func (n *NopMetrics) RecordScratchOperation(_ /* operation */ string, _ /* duration */ float64, _ /* success */ bool) {
}

// RecordBarrierWait discards the barrier wait metric.
func (n *NopMetrics) RecordBarrierWait(_ /* duration */ float64) {}

// RecordRankAssignment discards the rank assignment metric.
func (n *NopMetrics) RecordRankAssignment(_ /* rank */ int, _ /* species */ types.Species) {}

// OrNop returns m, or a NopMetrics when m is nil.
func OrNop(m types.MetricsCollector) types.MetricsCollector {
	if m == nil {
		return NewNop()
	}

	return m
}
