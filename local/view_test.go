package local

import (
	"errors"
	"testing"

	"github.com/arloliu/atomenv/types"
	"github.com/stretchr/testify/require"
)

// selfImageView is atom 1 (species 1) of a periodic chain: it sees atom 0,
// atom 2 and both of its own images along x.
func selfImageView(t *testing.T) *View {
	t.Helper()

	v, err := New(1, 1,
		[]int{0, 2, 1, 1},
		[]types.Species{1, 1, 1, 1},
		[]types.Vec3{{-1, 0, 0}, {1, 0, 0}, {3, 0, 0}, {-3, 0, 0}},
		[]types.Offset{{}, {}, {1, 0, 0}, {-1, 0, 0}},
	)
	require.NoError(t, err)

	return v
}

func mixedView(t *testing.T) *View {
	t.Helper()

	v, err := New(0, 8,
		[]int{1, 2, 3},
		[]types.Species{1, 8, 1},
		[]types.Vec3{{3, 0, 0}, {0, 1, 0}, {0, 0, 2}},
		[]types.Offset{{}, {}, {}},
	)
	require.NoError(t, err)

	return v
}

func TestNew(t *testing.T) {
	t.Run("starts with an all-true mask", func(t *testing.T) {
		v := mixedView(t)
		require.Equal(t, []bool{true, true, true}, v.Mask())
		require.Equal(t, 3, v.Len())
		require.Equal(t, 3, v.Count())
		require.Equal(t, []int{0, 0, 0}, v.Origins())
		require.Equal(t, []types.Species{8, 8, 8}, v.OriginSpecies())
	})

	t.Run("rejects candidate arrays of different length", func(t *testing.T) {
		_, err := New(0, 1, []int{1, 2}, []types.Species{1}, []types.Vec3{{}, {}}, nil)
		require.ErrorIs(t, err, types.ErrLengthMismatch)

		_, err = New(0, 1, []int{1}, []types.Species{1}, []types.Vec3{{}}, []types.Offset{{}, {}})
		require.ErrorIs(t, err, types.ErrLengthMismatch)
	})

	t.Run("copies its inputs", func(t *testing.T) {
		j := []int{1}
		v, err := New(0, 1, j, []types.Species{1}, []types.Vec3{{1, 0, 0}}, nil)
		require.NoError(t, err)
		j[0] = 7
		require.Equal(t, []int{1}, v.Neighbors())
	})
}

func TestSelect(t *testing.T) {
	t.Run("same species keeps each unordered pair once", func(t *testing.T) {
		v := selfImageView(t)
		mask := v.Select(1, 1, false)
		require.Equal(t, []bool{false, true, true, false}, mask)
		require.Equal(t, []int{2, 1}, v.Neighbors())
		require.Equal(t, []types.Offset{{}, {1, 0, 0}}, v.Offsets())
	})

	t.Run("same species bothways keeps every candidate", func(t *testing.T) {
		v := selfImageView(t)
		require.Equal(t, []bool{true, true, true, true}, v.Select(1, 1, true))
	})

	t.Run("mixed pair is directional without bothways", func(t *testing.T) {
		v := mixedView(t)
		require.Equal(t, []bool{true, false, true}, v.Select(8, 1, false))
		require.Equal(t, []bool{false, false, false}, v.Select(1, 8, false))
		require.Zero(t, v.Count())
	})

	t.Run("mixed pair bothways accepts the reversed pair", func(t *testing.T) {
		v := mixedView(t)
		require.Equal(t, []bool{true, false, true}, v.Select(1, 8, true))
	})

	t.Run("PairMask does not install the mask", func(t *testing.T) {
		v := mixedView(t)
		require.Equal(t, []bool{false, true, false}, v.PairMask(8, 8, true))
		require.Equal(t, []bool{true, true, true}, v.Mask())
	})

	t.Run("unselect restores all candidates", func(t *testing.T) {
		v := mixedView(t)
		v.Select(8, 8, false)
		v.Unselect()
		require.Equal(t, 3, v.Count())
	})
}

func TestSetMask(t *testing.T) {
	v := mixedView(t)

	require.ErrorIs(t, v.SetMask([]bool{true}), types.ErrMaskLength)
	require.NoError(t, v.SetMask([]bool{false, true, true}))
	require.Equal(t, []int{2, 3}, v.Neighbors())
	require.Equal(t, []types.Vec3{{0, 1, 0}, {0, 0, 2}}, v.Displacements())
	require.Equal(t, []float64{1, 2}, v.Distances())
}

func TestNearestNeighbors(t *testing.T) {
	v := mixedView(t)

	require.Equal(t, []int{2, 3, 1}, v.NearestNeighbors())
	require.Equal(t, []types.Vec3{{0, 1, 0}, {0, 0, 2}, {3, 0, 0}}, v.NearestDisplacements())

	t.Run("mask applied after the cached order", func(t *testing.T) {
		v.Select(8, 1, false)
		require.Equal(t, []int{3, 1}, v.NearestNeighbors())

		v.Unselect()
		require.Equal(t, []int{2, 3, 1}, v.NearestNeighbors())
	})

	t.Run("ties keep candidate order", func(t *testing.T) {
		w, err := New(0, 1, []int{5, 4, 3}, []types.Species{1, 1, 1},
			[]types.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, nil)
		require.NoError(t, err)
		require.Equal(t, []int{5, 4, 3}, w.NearestNeighbors())
	})
}

func TestVoronoi(t *testing.T) {
	v, err := New(0, 1, []int{1, 2, 3}, []types.Species{1, 1, 1},
		[]types.Vec3{{1, 0, 0}, {2, 0, 0}, {-1, 0, 0}}, nil)
	require.NoError(t, err)

	require.Equal(t, []int{1, 3}, v.Voronoi())
}

func TestDetach(t *testing.T) {
	t.Run("renumbers masked candidates", func(t *testing.T) {
		v := selfImageView(t)
		v.Select(1, 1, false)

		d := v.Detach(false)
		require.Equal(t, 0, d.Index())
		require.Equal(t, []int{0, 0}, d.Origins())
		require.Equal(t, []int{1, 2}, d.Neighbors())
		require.Equal(t, []types.Vec3{{1, 0, 0}, {3, 0, 0}}, d.Displacements())
		require.Nil(t, d.Offsets())
		require.Equal(t, []bool{true, true}, d.Mask())
	})

	t.Run("keeps ids on request", func(t *testing.T) {
		v := mixedView(t)
		v.Select(8, 1, false)

		d := v.Detach(true)
		require.Equal(t, 0, d.Index())
		require.Equal(t, []int{1, 3}, d.Neighbors())
		require.Equal(t, []types.Species{1, 1}, d.NeighborSpecies())
	})

	t.Run("detached view is independent", func(t *testing.T) {
		v := mixedView(t)
		d := v.Detach(false)
		d.Select(1, 1, false)
		require.Equal(t, 3, v.Count())
	})
}

func TestSampleRoundTrip(t *testing.T) {
	v := selfImageView(t)
	e := -1.25
	v.TargetEnergy = &e

	for _, sel := range [][]bool{nil, {true, false, true, false}, {false, false, false, false}} {
		if sel != nil {
			require.NoError(t, v.SetMask(sel))
		}

		s := v.AsSample()
		require.Equal(t, types.Species(1), s.Species[0])
		require.Equal(t, types.Vec3{}, s.Positions[0])
		require.Len(t, s.Positions, v.Count()+1)
		require.InDelta(t, e, *s.TargetEnergy, 0)

		w, err := FromSample(s)
		require.NoError(t, err)
		require.True(t, w.Equal(v.Detach(false)))
		require.InDelta(t, e, *w.TargetEnergy, 0)
	}

	t.Run("rejects malformed samples", func(t *testing.T) {
		_, err := FromSample(Sample{})
		require.ErrorIs(t, err, types.ErrLengthMismatch)

		_, err = FromSample(Sample{Species: []types.Species{1, 1}, Positions: []types.Vec3{{}}})
		require.ErrorIs(t, err, types.ErrLengthMismatch)

		_, err = FromSample(Sample{Species: []types.Species{1}, Positions: []types.Vec3{{0.5, 0, 0}}})
		require.ErrorIs(t, err, ErrOriginNotAtZero)
	})
}

func TestEqual(t *testing.T) {
	t.Run("ignores the mask", func(t *testing.T) {
		a := mixedView(t)
		b := mixedView(t)
		b.Select(8, 1, false)
		require.True(t, a.Equal(b))
	})

	t.Run("compares tie-break flags", func(t *testing.T) {
		a := selfImageView(t)
		b, err := New(1, 1,
			[]int{0, 2, 1, 1},
			[]types.Species{1, 1, 1, 1},
			[]types.Vec3{{-1, 0, 0}, {1, 0, 0}, {3, 0, 0}, {-3, 0, 0}},
			[]types.Offset{{}, {}, {-1, 0, 0}, {1, 0, 0}},
		)
		require.NoError(t, err)
		require.False(t, a.Equal(b))
	})

	t.Run("compares species and displacements", func(t *testing.T) {
		a := mixedView(t)
		b, err := New(0, 1, []int{1, 2, 3}, []types.Species{1, 8, 1},
			[]types.Vec3{{3, 0, 0}, {0, 1, 0}, {0, 0, 2}}, []types.Offset{{}, {}, {}})
		require.NoError(t, err)
		require.False(t, a.Equal(b))

		c, err := New(0, 8, []int{1, 2, 3}, []types.Species{1, 8, 1},
			[]types.Vec3{{3, 0, 0}, {0, 1, 0}, {0, 0, 2.5}}, []types.Offset{{}, {}, {}})
		require.NoError(t, err)
		require.False(t, a.Equal(c))
	})

	t.Run("nil views", func(t *testing.T) {
		var a *View
		require.True(t, a.Equal(nil))
		require.False(t, mixedView(t).Equal(nil))
	})
}

type scaleFeature struct {
	name  string
	scale float64
	fail  bool
}

func (f *scaleFeature) Name() string  { return f.name }
func (f *scaleFeature) State() string { return "v1" }

func (f *scaleFeature) Precompute(v *View) error {
	if f.fail {
		return errors.New("boom")
	}
	d := v.Distances()
	for k := range d {
		d[k] *= f.scale
	}
	v.SetFeature(f.name, d)

	return nil
}

func TestFeatures(t *testing.T) {
	v := mixedView(t)

	require.NoError(t, v.Stage([]FeatureGenerator{&scaleFeature{name: "double", scale: 2}}))
	f, ok := v.Feature("double")
	require.True(t, ok)
	require.Equal(t, []float64{6, 2, 4}, f)
	require.Equal(t, []string{"double"}, v.FeatureNames())

	_, ok = v.Feature("missing")
	require.False(t, ok)

	err := v.Stage([]FeatureGenerator{&scaleFeature{name: "broken", fail: true}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")

	v.ClearFeatures()
	require.Empty(t, v.FeatureNames())
}

func TestBinaryCodec(t *testing.T) {
	v := selfImageView(t)
	v.SetNumAtoms(3)
	v.Select(1, 1, false)
	v.SetFeature("g2", []float64{0.5, 1.5})
	e := 2.0
	v.TargetEnergy = &e

	data, err := v.MarshalBinary()
	require.NoError(t, err)

	var w View
	require.NoError(t, w.UnmarshalBinary(data))
	require.True(t, w.Equal(v))
	require.Equal(t, v.Mask(), w.Mask())
	require.Equal(t, 3, w.NumAtoms())
	require.Equal(t, v.Offsets(), w.Offsets())
	g2, ok := w.Feature("g2")
	require.True(t, ok)
	require.Equal(t, []float64{0.5, 1.5}, g2)
	require.InDelta(t, e, *w.TargetEnergy, 0)

	t.Run("corrupt frame", func(t *testing.T) {
		data[len(data)-1] ^= 0xff
		require.ErrorIs(t, w.UnmarshalBinary(data), types.ErrChecksumMismatch)
	})
}

func TestCollection(t *testing.T) {
	a := mixedView(t)
	b := selfImageView(t)

	c := NewCollection()
	c.Append([]*View{a, b}, true)
	require.Equal(t, 2, c.Len())
	require.True(t, c.At(0).Equal(a.Detach(false)))

	c.At(0).Select(8, 8, false)
	require.Equal(t, 3, a.Count())

	oxygen := c.Subset(8)
	require.Equal(t, 1, oxygen.Len())
	require.Equal(t, types.Species(8), oxygen.At(0).Species())
	require.Zero(t, c.Subset(6).Len())

	require.NoError(t, c.Stage([]FeatureGenerator{&scaleFeature{name: "x", scale: 1}}))
	for _, v := range c.Views() {
		require.Equal(t, []string{"x"}, v.FeatureNames())
	}

	samples := c.Samples()
	require.Len(t, samples, 2)
	require.Equal(t, types.Species(1), samples[1].Species[0])
}
