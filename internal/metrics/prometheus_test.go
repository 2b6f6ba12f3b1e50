package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)

	p.RecordViewsBuilt(3)

	families, err = reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordNeighborListBuild(16, 0.002)
	p.RecordNeighborListBuild(32, 0.004)
	p.RecordViewsBuilt(16)
	p.RecordViewsBuilt(32)
	p.RecordStage(32, 0.1)
	p.RecordGather(8, 0.01, true)
	p.RecordGather(8, 0.0, false)
	p.RecordScratchOperation("put", 0.001, true)
	p.RecordScratchOperation("get", 0.001, false)
	p.RecordBarrierWait(0.05)
	p.RecordRankAssignment(0, 8)
	p.RecordRankAssignment(0, 8)
	p.RecordRankAssignment(1, 1)

	require.InDelta(t, 2.0, testutil.ToFloat64(p.nlBuilds), 1e-9)
	require.InDelta(t, 32.0, testutil.ToFloat64(p.nlAtoms), 1e-9)
	require.InDelta(t, 48.0, testutil.ToFloat64(p.viewsBuilt), 1e-9)
	require.InDelta(t, 32.0, testutil.ToFloat64(p.stagedViews), 1e-9)
	require.InDelta(t, 8.0, testutil.ToFloat64(p.gatheredViews.WithLabelValues("distributed")), 1e-9)
	require.InDelta(t, 8.0, testutil.ToFloat64(p.gatheredViews.WithLabelValues("local")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.scratchOps.WithLabelValues("get", "failure")), 1e-9)
	require.InDelta(t, 2.0, testutil.ToFloat64(p.rankAssignments.WithLabelValues("0", "8")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.rankAssignments.WithLabelValues("1", "1")), 1e-9)
}

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(nil, "")

	require.Equal(t, prometheus.DefaultRegisterer, p.reg)
	require.Equal(t, "atomenv", p.namespace)
}
