package local

import (
	"fmt"

	"github.com/arloliu/atomenv/internal/wire"
	"github.com/arloliu/atomenv/types"
)

// viewFrame is the serialized form of a View.
type viewFrame struct {
	Index        int                  `json:"i"`
	Species      types.Species        `json:"a"`
	NumAtoms     int                  `json:"n,omitempty"`
	Origins      []int                `json:"origins"`
	Neighbors    []int                `json:"neighbors"`
	NSpecies     []types.Species      `json:"b"`
	Disp         []types.Vec3         `json:"r"`
	Offsets      []types.Offset       `json:"offsets,omitempty"`
	Mask         []bool               `json:"mask"`
	Features     map[string][]float64 `json:"features,omitempty"`
	TargetEnergy *float64             `json:"energy,omitempty"`
}

// MarshalBinary encodes the view, including its mask and features, into a
// checksummed frame suitable for a scratch store.
func (v *View) MarshalBinary() ([]byte, error) {
	return wire.Marshal(viewFrame{
		Index:        v.index,
		Species:      v.species,
		NumAtoms:     v.natoms,
		Origins:      v.origins,
		Neighbors:    v.neighbors,
		NSpecies:     v.nspecies,
		Disp:         v.disp,
		Offsets:      v.offsets,
		Mask:         v.mask,
		Features:     v.features,
		TargetEnergy: v.TargetEnergy,
	})
}

// UnmarshalBinary replaces v with the view encoded in data.
//
// Returns ErrChecksumMismatch for a corrupt frame and ErrLengthMismatch or
// ErrMaskLength for a frame whose arrays disagree.
func (v *View) UnmarshalBinary(data []byte) error {
	var f viewFrame
	if err := wire.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode view: %w", err)
	}

	nv, err := newView(f.Index, f.Species, f.Origins, f.Neighbors, f.NSpecies, f.Disp, f.Offsets)
	if err != nil {
		return err
	}
	if err := nv.SetMask(f.Mask); err != nil {
		return err
	}
	nv.natoms = f.NumAtoms
	nv.features = f.Features
	nv.TargetEnergy = f.TargetEnergy

	*v = *nv

	return nil
}
