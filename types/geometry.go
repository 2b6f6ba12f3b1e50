package types

import "math"

// Species is an atomic number.
type Species int

// Vec3 is a cartesian vector in Angstrom.
type Vec3 [3]float64

// Add returns v + u.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{v[0] + u[0], v[1] + u[1], v[2] + u[2]}
}

// Sub returns v - u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{v[0] - u[0], v[1] - u[1], v[2] - u[2]}
}

// Scale returns s * v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[0], s * v[1], s * v[2]}
}

// Dot returns the scalar product of v and u.
func (v Vec3) Dot(u Vec3) float64 {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2]
}

// Cross returns the vector product v × u.
func (v Vec3) Cross(u Vec3) Vec3 {
	return Vec3{
		v[1]*u[2] - v[2]*u[1],
		v[2]*u[0] - v[0]*u[2],
		v[0]*u[1] - v[1]*u[0],
	}
}

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Offset is a periodic image offset in units of the lattice vectors.
type Offset [3]int

// IsZero reports whether the offset refers to the original cell.
func (o Offset) IsZero() bool {
	return o[0] == 0 && o[1] == 0 && o[2] == 0
}

// Neg returns the opposite image offset.
func (o Offset) Neg() Offset {
	return Offset{-o[0], -o[1], -o[2]}
}

// Positive reports the lexicographic tie-break of an image offset.
//
// Components are compared in x, y, z order and the first non-zero one decides:
// the offset is positive when that component is greater than zero. The zero
// offset is reported as positive.
func (o Offset) Positive() bool {
	for _, c := range o {
		if c != 0 {
			return c > 0
		}
	}

	return true
}

// Cell holds the three lattice vectors of a simulation box as rows.
type Cell [3]Vec3

// Apply converts an image offset into a cartesian translation.
func (c Cell) Apply(o Offset) Vec3 {
	var t Vec3
	for k := range 3 {
		if o[k] == 0 {
			continue
		}
		t = t.Add(c[k].Scale(float64(o[k])))
	}

	return t
}

// Volume returns the absolute volume spanned by the lattice vectors.
func (c Cell) Volume() float64 {
	return math.Abs(c[0].Dot(c[1].Cross(c[2])))
}

// PBC holds the periodic boundary flags along each lattice vector.
type PBC [3]bool

// Any reports whether at least one axis is periodic.
func (p PBC) Any() bool {
	return p[0] || p[1] || p[2]
}

// Targets holds the optional reference values attached to a configuration.
//
// Every field is optional; a nil pointer or an empty slice means "not set".
type Targets struct {
	Energy *float64    `json:"energy,omitempty" yaml:"energy,omitempty"`
	Forces []Vec3      `json:"forces,omitempty" yaml:"forces,omitempty"`
	Stress *[6]float64 `json:"stress,omitempty" yaml:"stress,omitempty"`
}

// HasEnergy reports whether a target energy is set.
func (t Targets) HasEnergy() bool { return t.Energy != nil }

// HasForces reports whether target forces are set.
func (t Targets) HasForces() bool { return len(t.Forces) > 0 }

// HasStress reports whether a target stress is set.
func (t Targets) HasStress() bool { return t.Stress != nil }
