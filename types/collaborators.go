package types

import "context"

// NeighborQuery describes one neighbor search over a configuration.
type NeighborQuery struct {
	// Positions are the cartesian atom positions.
	Positions []Vec3

	// Cell holds the lattice vectors used to build periodic images.
	Cell Cell

	// PBC selects the periodic axes.
	PBC PBC

	// Radii are per-atom radii; atoms i and j are neighbors when their
	// distance is strictly below Radii[i] + Radii[j].
	Radii []float64

	// Bothways requests both (i, j) and (j, i) to be reported.
	Bothways bool

	// SelfInteraction reports an atom as its own neighbor at zero offset.
	SelfInteraction bool
}

// NeighborList is the result of a neighbor search.
//
// Indices[i] and Offsets[i] have the same length and describe the neighbors of atom i.
type NeighborList struct {
	Indices [][]int
	Offsets [][]Offset
}

// Len returns the number of atoms covered by the list.
func (nl *NeighborList) Len() int {
	return len(nl.Indices)
}

// Neighbors returns the neighbor indices and periodic offsets of atom i.
func (nl *NeighborList) Neighbors(i int) ([]int, []Offset) {
	return nl.Indices[i], nl.Offsets[i]
}

// NeighborSearcher finds neighbors within per-atom radii.
//
// Implementations are treated as pure: the same query yields the same list and
// the orchestrator re-invokes the search in full on every rebuild.
type NeighborSearcher interface {
	// Search runs a full neighbor search.
	//
	// Parameters:
	//   - q: Geometry and search flags
	//
	// Returns:
	//   - *NeighborList: Neighbor indices and offsets per atom
	//   - error: ErrDegenerateCell or ErrLengthMismatch for invalid input
	Search(q NeighborQuery) (*NeighborList, error)
}

// ScratchStore is a key-value byte store reachable by every rank of a group.
//
// It only needs to be durable for the duration of one gather. Keys written by
// different ranks never collide as long as atom ownership is a true partition.
type ScratchStore interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the value stored under key.
	//
	// Returns ErrScratchEntryMissing when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ProcessGroup is a handle to a distributed worker group.
//
// Every member must call Barrier the same number of times; a member that skips a
// call blocks the others indefinitely. There is no internal retry or timeout.
type ProcessGroup interface {
	// Rank returns the rank of the local worker in [0, WorldSize()).
	Rank() int

	// WorldSize returns the number of workers in the group.
	WorldSize() int

	// Barrier blocks until every member of the group has called Barrier.
	//
	// Returns ErrBarrierAborted (wrapped) when ctx ends first; the group must
	// not be used for collective calls afterwards.
	Barrier(ctx context.Context) error
}
