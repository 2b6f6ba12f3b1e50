package types

import "errors"

// Sentinel errors for the atomenv library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap them with the offending index, species or key using
// fmt.Errorf("%w: ...", ErrX, ...).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by taxonomy (configuration, data integrity, collective)

// Configuration errors - invalid setup, never retried.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCutoff is returned when a cutoff radius is negative or missing.
	ErrInvalidCutoff = errors.New("invalid cutoff")

	// ErrSpeciesMismatch is returned when the claimed species of an atom does not
	// match the species stored at that index.
	ErrSpeciesMismatch = errors.New("species mismatch")

	// ErrSpeciesNotPresent is returned when a species lookup finds no atom.
	ErrSpeciesNotPresent = errors.New("species not present")

	// ErrDuplicateFeatureGenerator is returned when two feature generators share a name.
	ErrDuplicateFeatureGenerator = errors.New("duplicate feature generator name")

	// ErrMalformedCheckpoint is returned when a checkpoint reference cannot be parsed
	// or points outside of its source.
	ErrMalformedCheckpoint = errors.New("malformed checkpoint")

	// ErrNoWorkers is returned when a partition is requested over zero workers.
	ErrNoWorkers = errors.New("no workers available")

	// ErrLengthMismatch is returned when per-atom arrays disagree in length.
	ErrLengthMismatch = errors.New("array length mismatch")

	// ErrDegenerateCell is returned when a periodic search is requested on a cell
	// with zero volume.
	ErrDegenerateCell = errors.New("degenerate cell")

	// ErrNeighborSearcherRequired is returned when no neighbor searcher is configured.
	ErrNeighborSearcherRequired = errors.New("neighbor searcher is required")
)

// Data-integrity errors - invariant violations, no silent fallback.
var (
	// ErrMaskLength is returned when a selection mask does not match the candidate arrays.
	ErrMaskLength = errors.New("mask length does not match candidates")

	// ErrPartitionInconsistent is returned when owned indices do not form a
	// valid subset of the configuration.
	ErrPartitionInconsistent = errors.New("partition inconsistent")

	// ErrChecksumMismatch is returned when a decoded frame fails its checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrScratchEntryMissing is returned when a scratch key does not exist.
	ErrScratchEntryMissing = errors.New("scratch entry missing")

	// ErrScratchRequired is returned when a distributed gather has no scratch store.
	ErrScratchRequired = errors.New("scratch store is required")
)

// Collective-operation errors - fatal at the process-group level.
var (
	// ErrBarrierAborted is returned when a barrier is left before all members arrived.
	ErrBarrierAborted = errors.New("barrier aborted")

	// ErrRankUnavailable is returned when no free rank can be claimed in a group.
	ErrRankUnavailable = errors.New("no rank available in group")
)
