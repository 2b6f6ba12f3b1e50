// Package changes detects what changed in a configuration since a reference snapshot.
//
// A Tracker copies the observable state of its Source on Snapshot and compares
// the live state against that copy on every query. Floating geometry (positions
// and cell) is compared approximately with a relative and an absolute tolerance;
// atom count, species, periodic flags and feature-state tokens are compared exactly.
//
// The Tracker never snapshots on its own. The owner decides when the current
// state becomes the new reference, typically after it has acted on a change.
package changes

import (
	"math"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/atomenv/types"
)

// Source is the observable state a Tracker watches.
type Source interface {
	NumAtoms() int
	Species() []types.Species
	Positions() []types.Vec3
	Cell() types.Cell
	PBC() types.PBC

	// FeatureStates returns the state tokens of the attached feature generators in order.
	FeatureStates() []string
}

// Tolerance configures the approximate comparison of floating geometry.
//
// Two values a (live) and b (reference) are equal when
// |a - b| <= Absolute + Relative*|b|.
type Tolerance struct {
	Relative float64 `yaml:"relative"`
	Absolute float64 `yaml:"absolute"`
}

// DefaultTolerance returns the default comparison tolerance.
func DefaultTolerance() Tolerance {
	return Tolerance{Relative: 1e-5, Absolute: 1e-8}
}

type snapshot struct {
	natoms    int
	species   []types.Species
	positions []types.Vec3
	cell      types.Cell
	pbc       types.PBC
	features  []uint64
}

// Tracker reports changes of a Source relative to its last snapshot.
type Tracker struct {
	src Source
	tol Tolerance
	ref snapshot
}

// NewTracker creates a tracker and takes the initial snapshot of src.
//
// Parameters:
//   - src: Observed state
//   - tol: Geometry comparison tolerance
//
// Returns:
//   - *Tracker: Tracker reporting no changes until src is mutated
func NewTracker(src Source, tol Tolerance) *Tracker {
	t := &Tracker{src: src, tol: tol}
	t.Snapshot()

	return t
}

// Snapshot makes the current state of the source the new reference.
func (t *Tracker) Snapshot() {
	t.ref = snapshot{
		natoms:    t.src.NumAtoms(),
		species:   slices.Clone(t.src.Species()),
		positions: slices.Clone(t.src.Positions()),
		cell:      t.src.Cell(),
		pbc:       t.src.PBC(),
		features:  fingerprints(t.src.FeatureStates()),
	}
}

// Count reports whether the number of atoms changed.
func (t *Tracker) Count() bool {
	return t.src.NumAtoms() != t.ref.natoms
}

// AtomicSpecies reports whether any atom's species changed.
// A count change counts as a species change.
func (t *Tracker) AtomicSpecies() bool {
	return !slices.Equal(t.src.Species(), t.ref.species)
}

// Species reports whether the atom count or any species changed.
func (t *Tracker) Species() bool {
	return t.Count() || t.AtomicSpecies()
}

// Positions reports whether any position moved beyond the tolerance.
func (t *Tracker) Positions() bool {
	cur := t.src.Positions()
	if len(cur) != len(t.ref.positions) {
		return true
	}
	for k := range cur {
		if !t.tol.CloseVec(cur[k], t.ref.positions[k]) {
			return true
		}
	}

	return false
}

// Cell reports whether any lattice vector component changed beyond the tolerance.
func (t *Tracker) Cell() bool {
	cur := t.src.Cell()
	for k := range cur {
		if !t.tol.CloseVec(cur[k], t.ref.cell[k]) {
			return true
		}
	}

	return false
}

// PBC reports whether any periodic flag flipped.
func (t *Tracker) PBC() bool {
	return t.src.PBC() != t.ref.pbc
}

// AnyGeometry reports whether the count, species, positions, cell or periodic
// flags changed.
func (t *Tracker) AnyGeometry() bool {
	return t.Species() || t.Positions() || t.Cell() || t.PBC()
}

// FeatureState reports, per attached feature generator, whether its state token
// differs from the snapshot. Generators attached after the snapshot are
// reported as changed.
func (t *Tracker) FeatureState() []bool {
	cur := fingerprints(t.src.FeatureStates())
	out := make([]bool, len(cur))
	for k, fp := range cur {
		out[k] = k >= len(t.ref.features) || fp != t.ref.features[k]
	}

	return out
}

// FeatureCount reports whether the number of attached feature generators changed.
func (t *Tracker) FeatureCount() bool {
	return len(t.src.FeatureStates()) != len(t.ref.features)
}

// SnapshotFeatures makes the current generator states the new reference and
// keeps the geometry reference.
func (t *Tracker) SnapshotFeatures() {
	t.ref.features = fingerprints(t.src.FeatureStates())
}

// AnyFeatureState reports whether any generator state changed or the number
// of attached generators changed.
func (t *Tracker) AnyFeatureState() bool {
	cur := fingerprints(t.src.FeatureStates())
	if len(cur) != len(t.ref.features) {
		return true
	}

	return !slices.Equal(cur, t.ref.features)
}

// CloseVec reports whether every component of a is close to b.
func (tol Tolerance) CloseVec(a, b types.Vec3) bool {
	for k := range a {
		if !tol.Close(a[k], b[k]) {
			return false
		}
	}

	return true
}

// Close reports whether a is close to the reference value b.
// NaN is never close to anything.
func (tol Tolerance) Close(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	return math.Abs(a-b) <= tol.Absolute+tol.Relative*math.Abs(b)
}

func fingerprints(states []string) []uint64 {
	out := make([]uint64, len(states))
	for k, s := range states {
		out[k] = xxh3.HashString(s)
	}

	return out
}
