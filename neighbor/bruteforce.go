// Package neighbor provides a reference neighbor search over periodic cells.
package neighbor

import (
	"fmt"
	"math"
	"slices"

	"github.com/arloliu/atomenv/types"
)

const (
	// minVolume is the smallest volume (or area) spanned by the periodic lattice vectors.
	minVolume = 1e-12

	// minLength is the shortest periodic lattice vector of a single periodic axis.
	minLength = 1e-6
)

// BruteForce is an all-pairs NeighborSearcher.
//
// Every pair of atoms is tested against every periodic image that can lie
// within reach, so the cost grows with the square of the atom count. It is
// intended for small configurations and as a reference for faster searchers.
type BruteForce struct{}

var _ types.NeighborSearcher = (*BruteForce)(nil)

// NewBruteForce creates a brute-force searcher.
func NewBruteForce() *BruteForce {
	return &BruteForce{}
}

// Search finds, for every atom i, the atoms j and image offsets o with
// |pos[j] - pos[i] + o·cell| < Radii[i] + Radii[j].
//
// Neighbors of each atom are reported in ascending j, then in lexicographic
// offset order. Without Bothways each unordered pair is reported once, from the
// lower index, and self images only with a positive offset.
//
// Returns:
//   - *types.NeighborList: Neighbors per atom
//   - error: ErrLengthMismatch when radii and positions differ in length,
//     ErrDegenerateCell when the periodic lattice vectors are degenerate
func (b *BruteForce) Search(q types.NeighborQuery) (*types.NeighborList, error) {
	n := len(q.Positions)
	if len(q.Radii) != n {
		return nil, fmt.Errorf("%w: %d radii for %d atoms", types.ErrLengthMismatch, len(q.Radii), n)
	}

	nl := &types.NeighborList{
		Indices: make([][]int, n),
		Offsets: make([][]types.Offset, n),
	}
	if n == 0 {
		return nl, nil
	}

	images, err := imageOffsets(q)
	if err != nil {
		return nil, err
	}

	shifts := make([]types.Vec3, len(images))
	for k, o := range images {
		shifts[k] = q.Cell.Apply(o)
	}

	for i := range n {
		for j := range n {
			if !q.Bothways && j < i {
				continue
			}
			reach := q.Radii[i] + q.Radii[j]
			base := q.Positions[j].Sub(q.Positions[i])
			for k, o := range images {
				if i == j {
					if o.IsZero() && !q.SelfInteraction {
						continue
					}
					if !q.Bothways && !o.Positive() {
						continue
					}
				}
				if base.Add(shifts[k]).Norm() < reach {
					nl.Indices[i] = append(nl.Indices[i], j)
					nl.Offsets[i] = append(nl.Offsets[i], o)
				}
			}
		}
	}

	return nl, nil
}

// imageOffsets lists every offset that can bring two atoms within reach, in
// lexicographic order. Non-periodic axes contribute only zero.
func imageOffsets(q types.NeighborQuery) ([]types.Offset, error) {
	var span [3]int
	if q.PBC.Any() {
		cell, err := periodicCell(q.Cell, q.PBC)
		if err != nil {
			return nil, err
		}
		volume := cell.Volume()

		reach := 2 * slices.Max(q.Radii)
		for k := range 3 {
			if !q.PBC[k] {
				continue
			}
			// reciprocal vector of axis k; its dot product with a position
			// is the fractional coordinate along that axis
			normal := cell[(k+1)%3].Cross(cell[(k+2)%3])
			height := volume / normal.Norm()
			recip := normal.Scale(1 / cell[k].Dot(normal))

			lo, hi := math.Inf(1), math.Inf(-1)
			for _, p := range q.Positions {
				f := p.Dot(recip)
				lo = math.Min(lo, f)
				hi = math.Max(hi, f)
			}
			span[k] = int(math.Ceil(reach/height + hi - lo))
		}
	}

	var out []types.Offset
	for x := -span[0]; x <= span[0]; x++ {
		for y := -span[1]; y <= span[1]; y++ {
			for z := -span[2]; z <= span[2]; z++ {
				out = append(out, types.Offset{x, y, z})
			}
		}
	}

	return out, nil
}

// periodicCell returns the cell used to bound the image search: the periodic
// lattice vectors as given, and the non-periodic ones replaced by unit vectors
// orthogonal to them. Non-periodic vectors never shift an atom, so they may be
// zero or parallel to the periodic ones.
//
// Returns ErrDegenerateCell when the periodic vectors do not span their own
// line, plane or volume.
func periodicCell(cell types.Cell, pbc types.PBC) (types.Cell, error) {
	var periodic, open []int
	for k := range 3 {
		if pbc[k] {
			periodic = append(periodic, k)
		} else {
			open = append(open, k)
		}
	}

	out := cell
	switch len(periodic) {
	case 1:
		a := cell[periodic[0]]
		if a.Norm() < minLength {
			return out, fmt.Errorf("%w: periodic lattice vector %d has length %g",
				types.ErrDegenerateCell, periodic[0], a.Norm())
		}
		u := a.Scale(1 / a.Norm())
		e := types.Vec3{1, 0, 0}
		if math.Abs(u[0]) > 0.9 {
			e = types.Vec3{0, 1, 0}
		}
		v := e.Sub(u.Scale(e.Dot(u)))
		v = v.Scale(1 / v.Norm())
		out[open[0]] = v
		out[open[1]] = u.Cross(v)
	case 2:
		n := cell[periodic[0]].Cross(cell[periodic[1]])
		if n.Norm() < minVolume {
			return out, fmt.Errorf("%w: periodic lattice vectors %d and %d span area %g",
				types.ErrDegenerateCell, periodic[0], periodic[1], n.Norm())
		}
		out[open[0]] = n.Scale(1 / n.Norm())
	}

	if volume := out.Volume(); volume < minVolume {
		return out, fmt.Errorf("%w: volume %g", types.ErrDegenerateCell, volume)
	}

	return out, nil
}
