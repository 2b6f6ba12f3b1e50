package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Ranks driven by goroutines of one process may share a collector, so
// implementations must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	EnvironmentMetrics
	DistributionMetrics
}

// EnvironmentMetrics defines metrics for neighbor-list and view maintenance.
type EnvironmentMetrics interface {
	// RecordNeighborListBuild records one full neighbor search.
	//
	// Parameters:
	//   - atoms: Number of atoms searched
	//   - duration: Time taken in seconds
	RecordNeighborListBuild(atoms int, duration float64)

	// RecordViewsBuilt records how many pairwise views were rebuilt by an update.
	RecordViewsBuilt(count int)

	// RecordStage records one staging pass.
	//
	// Parameters:
	//   - views: Number of views staged
	//   - duration: Time taken in seconds
	RecordStage(views int, duration float64)
}

// DistributionMetrics defines metrics for partitioning and gather operations.
type DistributionMetrics interface {
	// RecordGather records one gather call.
	//
	// Parameters:
	//   - views: Number of views returned
	//   - duration: Time taken in seconds
	//   - distributed: false when the held views were returned unchanged
	RecordGather(views int, duration float64, distributed bool)

	// RecordScratchOperation records one scratch store operation.
	//
	// Parameters:
	//   - operation: Operation type ("put", "get", "delete")
	//   - duration: Time taken in seconds
	//   - success: true if the operation succeeded
	RecordScratchOperation(operation string, duration float64, success bool)

	// RecordBarrierWait records the time spent blocked in a group barrier.
	RecordBarrierWait(duration float64)

	// RecordRankAssignment records one atom assigned to a rank by the load balancer.
	RecordRankAssignment(rank int, species Species)
}
