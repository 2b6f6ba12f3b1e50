// Package types provides core type definitions and interfaces for the atomenv library.
//
// This package contains shared types that are used across multiple packages in the
// atomenv library. By keeping these types in a separate package, we avoid import cycles
// between the main atomenv package and its internal implementations.
//
// Key types:
//   - Species, Vec3, Offset, Cell, PBC: Geometry of an atomic configuration
//   - NeighborSearcher, NeighborList: Neighbor-search collaborator contract
//   - ScratchStore: Key-value byte store used during gather
//   - ProcessGroup: Rank, world size and barrier of a distributed worker group
//   - Targets: Optional reference energy, forces and stress
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
