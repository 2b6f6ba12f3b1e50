// Package local implements the per-atom pairwise view of a local atomic environment.
//
// A View holds the candidate neighbor pairs of one reference atom i: neighbor
// indices j, neighbor species, displacement vectors r = pos[j] - pos[i] + offset·cell
// and periodic image offsets. Candidate arrays are immutable after construction.
// A boolean selection mask restricts which candidates participate in every
// masked accessor; it starts all-true and is the only mutable geometry state.
//
// Views are rebuilt wholesale by their owning configuration on every neighbor
// list refresh; there is no incremental patching.
package local

import (
	"fmt"
	"slices"
	"sort"

	"github.com/arloliu/atomenv/types"
)

// View is the pairwise view of one atom's local environment.
//
// Views are not safe for concurrent mutation; each rank owns its views.
type View struct {
	index   int
	species types.Species
	natoms  int

	// candidate arrays, all of the same length
	origins   []int
	neighbors []int
	nspecies  []types.Species
	disp      []types.Vec3
	offsets   []types.Offset // nil for detached views

	mask []bool

	// lazily derived from the candidate arrays
	dist  []float64
	order []int
	lex   []bool

	features map[string][]float64

	// TargetEnergy is the optional reference energy of a single-environment sample.
	TargetEnergy *float64
}

// New creates the view of atom index with the given candidates.
//
// Parameters:
//   - index: Index of the reference atom
//   - species: Species of the reference atom
//   - neighbors: Neighbor indices j
//   - neighborSpecies: Species of every neighbor
//   - disp: Displacements r = pos[j] - pos[i] + offset·cell
//   - offsets: Periodic image offsets (nil when unknown)
//
// Returns:
//   - *View: View with an all-true mask
//   - error: ErrLengthMismatch when the candidate arrays differ in length
func New(
	index int,
	species types.Species,
	neighbors []int,
	neighborSpecies []types.Species,
	disp []types.Vec3,
	offsets []types.Offset,
) (*View, error) {
	origins := make([]int, len(neighbors))
	for k := range origins {
		origins[k] = index
	}

	return newView(index, species, origins, neighbors, neighborSpecies, disp, offsets)
}

func newView(
	index int,
	species types.Species,
	origins []int,
	neighbors []int,
	neighborSpecies []types.Species,
	disp []types.Vec3,
	offsets []types.Offset,
) (*View, error) {
	n := len(neighbors)
	if len(origins) != n || len(neighborSpecies) != n || len(disp) != n {
		return nil, fmt.Errorf("%w: view of atom %d has %d neighbors, %d origins, %d species, %d displacements",
			types.ErrLengthMismatch, index, n, len(origins), len(neighborSpecies), len(disp))
	}
	if offsets != nil && len(offsets) != n {
		return nil, fmt.Errorf("%w: view of atom %d has %d neighbors and %d offsets",
			types.ErrLengthMismatch, index, n, len(offsets))
	}

	v := &View{
		index:     index,
		species:   species,
		origins:   slices.Clone(origins),
		neighbors: slices.Clone(neighbors),
		nspecies:  slices.Clone(neighborSpecies),
		disp:      slices.Clone(disp),
		offsets:   slices.Clone(offsets),
	}
	v.Unselect()

	return v, nil
}

// Index returns the index of the reference atom.
func (v *View) Index() int { return v.index }

// Species returns the species of the reference atom.
func (v *View) Species() types.Species { return v.species }

// NumAtoms returns the atom count of the configuration the view was built from.
// It is zero for views that were not built from a configuration.
func (v *View) NumAtoms() int { return v.natoms }

// SetNumAtoms records the atom count of the parent configuration.
func (v *View) SetNumAtoms(n int) { v.natoms = n }

// Len returns the number of candidates, ignoring the mask.
func (v *View) Len() int { return len(v.neighbors) }

// Count returns the number of candidates passing the mask.
func (v *View) Count() int {
	c := 0
	for _, m := range v.mask {
		if m {
			c++
		}
	}

	return c
}

// Mask returns a copy of the active selection mask.
func (v *View) Mask() []bool {
	return slices.Clone(v.mask)
}

// SetMask installs mask as the active selection.
//
// Returns ErrMaskLength when len(mask) differs from Len().
func (v *View) SetMask(mask []bool) error {
	if len(mask) != len(v.neighbors) {
		return fmt.Errorf("%w: atom %d has %d candidates, mask has %d",
			types.ErrMaskLength, v.index, len(v.neighbors), len(mask))
	}
	v.mask = slices.Clone(mask)

	return nil
}

// Origins returns the masked origin indices i.
func (v *View) Origins() []int { return masked(v.origins, v.mask) }

// Neighbors returns the masked neighbor indices j.
func (v *View) Neighbors() []int { return masked(v.neighbors, v.mask) }

// OriginSpecies returns the reference species repeated for every masked candidate.
func (v *View) OriginSpecies() []types.Species {
	out := make([]types.Species, 0, len(v.mask))
	for _, m := range v.mask {
		if m {
			out = append(out, v.species)
		}
	}

	return out
}

// NeighborSpecies returns the masked neighbor species.
func (v *View) NeighborSpecies() []types.Species { return masked(v.nspecies, v.mask) }

// Displacements returns the masked displacement vectors.
func (v *View) Displacements() []types.Vec3 { return masked(v.disp, v.mask) }

// Offsets returns the masked periodic offsets, or nil for a detached view.
func (v *View) Offsets() []types.Offset {
	if v.offsets == nil {
		return nil
	}

	return masked(v.offsets, v.mask)
}

// Lex returns the masked lexicographic tie-break flags.
func (v *View) Lex() []bool { return masked(v.lexFlags(), v.mask) }

// Distances returns the masked pairwise distances |r|.
func (v *View) Distances() []float64 { return masked(v.distances(), v.mask) }

// NearestNeighbors returns the masked neighbor indices in ascending distance order.
func (v *View) NearestNeighbors() []int {
	return orderedMasked(v.neighbors, v.nearestOrder(), v.mask)
}

// NearestDisplacements returns the masked displacements in ascending distance order.
func (v *View) NearestDisplacements() []types.Vec3 {
	return orderedMasked(v.disp, v.nearestOrder(), v.mask)
}

// Voronoi returns the masked neighbors that share a Voronoi face with the
// reference atom: j is kept when (r_j - r_k)·r_k <= 0 for every masked k.
func (v *View) Voronoi() []int {
	r := v.Displacements()
	j := v.Neighbors()
	out := make([]int, 0, len(j))
	for p := range r {
		face := true
		for q := range r {
			if r[p].Sub(r[q]).Dot(r[q]) > 0 {
				face = false
				break
			}
		}
		if face {
			out = append(out, j[p])
		}
	}

	return out
}

func (v *View) distances() []float64 {
	if v.dist == nil {
		v.dist = make([]float64, len(v.disp))
		for k, r := range v.disp {
			v.dist[k] = r.Norm()
		}
	}

	return v.dist
}

// nearestOrder is a stable ascending sort of all candidates by distance.
// It depends only on the immutable candidate arrays, so it is computed once per
// view and the current mask is applied when reading through it.
func (v *View) nearestOrder() []int {
	if v.order == nil {
		d := v.distances()
		order := make([]int, len(d))
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool { return d[order[a]] < d[order[b]] })
		v.order = order
	}

	return v.order
}

func (v *View) lexFlags() []bool {
	if v.lex == nil {
		v.lex = make([]bool, len(v.neighbors))
		for k := range v.lex {
			v.lex[k] = v.offsets == nil || v.offsets[k].Positive()
		}
	}

	return v.lex
}

func masked[T any](values []T, mask []bool) []T {
	out := make([]T, 0, len(values))
	for k, m := range mask {
		if m {
			out = append(out, values[k])
		}
	}

	return out
}

func orderedMasked[T any](values []T, order []int, mask []bool) []T {
	out := make([]T, 0, len(values))
	for _, k := range order {
		if mask[k] {
			out = append(out, values[k])
		}
	}

	return out
}
