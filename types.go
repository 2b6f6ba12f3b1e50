package atomenv

import (
	"github.com/arloliu/atomenv/local"
	"github.com/arloliu/atomenv/types"
)

// Re-export types from the types and local packages.
//
// Feature packages depend on types only; the aliases give users a single
// import for the common vocabulary (atomenv.Species, atomenv.View, ...).
type (
	Species       = types.Species
	Vec3          = types.Vec3
	Offset        = types.Offset
	Cell          = types.Cell
	PBC           = types.PBC
	Targets       = types.Targets
	NeighborList  = types.NeighborList
	NeighborQuery = types.NeighborQuery
	View          = local.View
	Sample        = local.Sample
)

// Re-export collaborator interfaces for convenience.
type (
	NeighborSearcher = types.NeighborSearcher
	ScratchStore     = types.ScratchStore
	ProcessGroup     = types.ProcessGroup
	FeatureGenerator = local.FeatureGenerator
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
)
