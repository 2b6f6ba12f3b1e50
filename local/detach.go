package local

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arloliu/atomenv/types"
)

// ErrOriginNotAtZero is returned when a sample's first position is not the origin.
var ErrOriginNotAtZero = errors.New("sample origin is not at zero")

// Sample is a single-environment sample detached from any configuration.
//
// Species[0] and Positions[0] describe the reference atom, which sits at the
// origin; the remaining entries are its neighbors with positions equal to the
// displacement vectors of the view.
type Sample struct {
	Species      []types.Species `json:"species" yaml:"species"`
	Positions    []types.Vec3    `json:"positions" yaml:"positions"`
	TargetEnergy *float64        `json:"targetEnergy,omitempty" yaml:"targetEnergy,omitempty"`
}

// Detach returns an independent copy of the view's masked candidates.
//
// Without keepIDs the copy is renumbered to the canonical local scheme: the
// reference atom gets index 0 and the neighbors 1..n in candidate order.
// Detached views carry no periodic offsets, no features and an all-true mask.
//
// Parameters:
//   - keepIDs: Keep the configuration indices instead of renumbering
//
// Returns:
//   - *View: Detached view
func (v *View) Detach(keepIDs bool) *View {
	n := v.Count()
	origins := make([]int, n)
	neighbors := make([]int, n)
	index := 0
	if keepIDs {
		index = v.index
		origins = v.Origins()
		neighbors = v.Neighbors()
	} else {
		for k := range neighbors {
			neighbors[k] = k + 1
		}
	}

	d := &View{
		index:     index,
		species:   v.species,
		origins:   origins,
		neighbors: neighbors,
		nspecies:  v.NeighborSpecies(),
		disp:      v.Displacements(),
	}
	d.Unselect()

	return d
}

// AsSample converts the masked view into a single-environment sample.
func (v *View) AsSample() Sample {
	disp := v.Displacements()
	s := Sample{
		Species:   append([]types.Species{v.species}, v.NeighborSpecies()...),
		Positions: append([]types.Vec3{{}}, disp...),
	}
	if v.TargetEnergy != nil {
		e := *v.TargetEnergy
		s.TargetEnergy = &e
	}

	return s
}

// FromSample rebuilds a detached view from a single-environment sample.
//
// FromSample(v.AsSample()) is equal to v.Detach(false).
//
// Returns:
//   - *View: Canonically numbered view
//   - error: ErrLengthMismatch or ErrOriginNotAtZero for a malformed sample
func FromSample(s Sample) (*View, error) {
	if len(s.Species) == 0 || len(s.Species) != len(s.Positions) {
		return nil, fmt.Errorf("%w: sample has %d species and %d positions",
			types.ErrLengthMismatch, len(s.Species), len(s.Positions))
	}
	if s.Positions[0] != (types.Vec3{}) {
		return nil, fmt.Errorf("%w: %v", ErrOriginNotAtZero, s.Positions[0])
	}

	n := len(s.Species) - 1
	origins := make([]int, n)
	neighbors := make([]int, n)
	for k := range neighbors {
		neighbors[k] = k + 1
	}

	v, err := newView(0, s.Species[0], origins, neighbors, s.Species[1:], s.Positions[1:], nil)
	if err != nil {
		return nil, err
	}
	if s.TargetEnergy != nil {
		e := *s.TargetEnergy
		v.TargetEnergy = &e
	}

	return v, nil
}

// Equal reports whether two views hold identical candidates.
//
// Indices, species, displacements and tie-break flags are compared element-wise
// on the unmasked arrays; masks, features and target values are ignored.
func (v *View) Equal(other *View) bool {
	if v == nil || other == nil {
		return v == other
	}

	return v.species == other.species &&
		slices.Equal(v.origins, other.origins) &&
		slices.Equal(v.neighbors, other.neighbors) &&
		slices.Equal(v.nspecies, other.nspecies) &&
		slices.Equal(v.disp, other.disp) &&
		slices.Equal(v.lexFlags(), other.lexFlags())
}
