package atomenv

import "github.com/arloliu/atomenv/types"

// Sentinel errors returned by Configuration and Dataset.
//
// They are the same values as in the types package, so errors.Is works no
// matter which package produced the error.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrInvalidCutoff is returned when a neighbor list is requested without a
	// positive cutoff.
	ErrInvalidCutoff = types.ErrInvalidCutoff

	// ErrSpeciesMismatch is returned when the claimed species of an atom does not
	// match the species stored at that index.
	ErrSpeciesMismatch = types.ErrSpeciesMismatch

	// ErrSpeciesNotPresent is returned when a species lookup finds no atom.
	ErrSpeciesNotPresent = types.ErrSpeciesNotPresent

	// ErrDuplicateFeatureGenerator is returned when two feature generators share a name.
	ErrDuplicateFeatureGenerator = types.ErrDuplicateFeatureGenerator

	// ErrNoWorkers is returned when a partition is requested over zero workers.
	ErrNoWorkers = types.ErrNoWorkers

	// ErrLengthMismatch is returned when per-atom arrays disagree in length.
	ErrLengthMismatch = types.ErrLengthMismatch

	// ErrDegenerateCell is returned when a periodic search runs on a flat cell.
	ErrDegenerateCell = types.ErrDegenerateCell

	// ErrNeighborSearcherRequired is returned when no neighbor searcher is configured.
	ErrNeighborSearcherRequired = types.ErrNeighborSearcherRequired

	// ErrMaskLength is returned when a selection mask does not match the candidates.
	ErrMaskLength = types.ErrMaskLength

	// ErrPartitionInconsistent is returned when owned indices are not a valid
	// subset of the configuration's atoms.
	ErrPartitionInconsistent = types.ErrPartitionInconsistent

	// ErrChecksumMismatch is returned when a serialized view fails its checksum.
	ErrChecksumMismatch = types.ErrChecksumMismatch

	// ErrMalformedCheckpoint is returned when a checkpoint reference cannot be parsed.
	ErrMalformedCheckpoint = types.ErrMalformedCheckpoint

	// ErrScratchEntryMissing is returned when a gathered view is absent from scratch storage.
	ErrScratchEntryMissing = types.ErrScratchEntryMissing

	// ErrScratchRequired is returned when a distributed gather has no scratch store.
	ErrScratchRequired = types.ErrScratchRequired

	// ErrBarrierAborted is returned when a barrier is left before all members arrived.
	ErrBarrierAborted = types.ErrBarrierAborted

	// ErrRankUnavailable is returned when no free rank can be claimed in a group.
	ErrRankUnavailable = types.ErrRankUnavailable
)
