package local

import (
	"slices"

	"github.com/arloliu/atomenv/types"
)

// PairMask computes the selection mask for the species pair (a, b) without
// installing it.
//
// A candidate matches when (species of i, species of j) equals (a, b). With
// bothways, (b, a) matches as well. When a == b and bothways is false, each
// unordered same-species pair is kept exactly once: a candidate survives when
// j > i, or when j == i (a periodic self image) and its offset passes the
// lexicographic tie-break.
//
// Parameters:
//   - a: Species of the reference atom
//   - b: Species of the neighbor
//   - bothways: Also accept the reversed pair (b, a)
//
// Returns:
//   - []bool: Mask of the same length as the candidate arrays
func (v *View) PairMask(a, b types.Species, bothways bool) []bool {
	lex := v.lexFlags()
	m := make([]bool, len(v.neighbors))
	for k, j := range v.neighbors {
		match := v.species == a && v.nspecies[k] == b
		switch {
		case a == b && !bothways:
			i := v.origins[k]
			match = match && (j > i || (j == i && lex[k]))
		case a != b && bothways:
			match = match || (v.species == b && v.nspecies[k] == a)
		}
		m[k] = match
	}

	return m
}

// Select computes the mask for (a, b) like PairMask and installs it as the
// active selection.
//
// Returns:
//   - []bool: The installed mask (a copy)
//
// Example:
//
//	view.Select(8, 1, false)        // O-H pairs seen from an oxygen
//	r := view.Displacements()       // only O-H displacements
//	view.Unselect()
func (v *View) Select(a, b types.Species, bothways bool) []bool {
	v.mask = v.PairMask(a, b, bothways)

	return slices.Clone(v.mask)
}

// Unselect resets the mask to all-true.
func (v *View) Unselect() {
	v.mask = make([]bool, len(v.neighbors))
	for k := range v.mask {
		v.mask[k] = true
	}
}
