package atomenv

import (
	"math/rand/v2"
	"testing"

	"github.com/arloliu/atomenv/checkpoint"
	atomtest "github.com/arloliu/atomenv/testing"
	"github.com/stretchr/testify/require"
)

func newOxygenPair(t *testing.T, cfg Config, opts ...Option) *Configuration {
	t.Helper()

	c, err := New([]Species{8, 8}, []Vec3{{0, 0, 0}, {1.2, 0, 0}}, cubic4, PBC{true, true, true}, cfg, opts...)
	require.NoError(t, err)

	return c
}

func newDataset(t *testing.T, cfg Config) *Dataset {
	t.Helper()

	return NewDataset([]*Configuration{newFixture(t, cfg), newOxygenPair(t, cfg)})
}

func TestDataset_Composition(t *testing.T) {
	t.Run("append to itself duplicates once", func(t *testing.T) {
		d := newDataset(t, TestConfig())
		d.Append(d)

		require.Equal(t, 4, d.Len())
		require.Same(t, d.At(0), d.At(2))
		require.Same(t, d.At(1), d.At(3))
	})

	t.Run("concat leaves both inputs alone", func(t *testing.T) {
		a := newDataset(t, TestConfig())
		b := NewDataset([]*Configuration{newOxygenPair(t, TestConfig())})

		out := a.Concat(b)
		require.Equal(t, 3, out.Len())
		require.Equal(t, 2, a.Len())
		require.Equal(t, 1, b.Len())
		require.Same(t, b.At(0), out.At(2))
	})

	t.Run("add and items", func(t *testing.T) {
		d := NewDataset(nil)
		c := newOxygenPair(t, TestConfig())
		d.Add(c)

		items := d.Items()
		require.Len(t, items, 1)
		items[0] = nil
		require.Same(t, c, d.At(0))
	})

	t.Run("subset shares configurations", func(t *testing.T) {
		d := newDataset(t, TestConfig())

		require.Equal(t, 1, d.Subset(1).Len())
		require.Same(t, d.At(0), d.Subset(1).At(0))
		require.Equal(t, 2, d.Subset(8).Len())
		require.Zero(t, d.Subset(6).Len())
	})
}

func TestDataset_Species(t *testing.T) {
	d := newDataset(t, TestConfig())

	require.Equal(t, []Species{1, 8}, d.SpeciesSet())
	require.Equal(t, [][2]Species{{1, 8}, {1, 1}, {8, 8}}, d.Pairs())
	require.Equal(t, [][2]Species{{1, 6}, {1, 8}, {6, 8}, {1, 1}, {6, 6}, {8, 8}}, d.Pairs(1, 6, 8))
	require.Equal(t, map[Species]int{1: 2, 8: 4}, d.Counts(true))
	require.Equal(t, map[Species]int{1: 2, 8: 4}, d.Counts(false))
}

func TestDataset_Update(t *testing.T) {
	d := newDataset(t, DefaultConfig())
	require.Zero(t, d.At(0).NumViews())
	require.False(t, d.IsDistributed())

	require.NoError(t, d.Update(UpdateOptions{Cutoff: 3}))
	require.Equal(t, 4, d.At(0).NumViews())
	require.Equal(t, 2, d.At(1).NumViews())

	require.ErrorIs(t, d.Update(UpdateOptions{Cutoff: -3}), ErrInvalidCutoff)
}

func TestDataset_Sampling(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))

	t.Run("pick random without replacement", func(t *testing.T) {
		d := newDataset(t, TestConfig())
		out := d.PickRandom(1, rng)
		require.Equal(t, 1, out.Len())
		require.Contains(t, d.Items(), out.At(0))
	})

	t.Run("pick random clamps and warns", func(t *testing.T) {
		rec := &atomtest.WarnRecorder{}
		d := NewDataset(newDataset(t, TestConfig()).Items(), WithDatasetLogger(rec))

		out := d.PickRandom(5, rng)
		require.Equal(t, 2, out.Len())
		require.NotSame(t, out.At(0), out.At(1))
		require.Len(t, rec.Warnings, 1)
	})

	t.Run("to locals detaches every view", func(t *testing.T) {
		d := newDataset(t, TestConfig())

		locals := d.ToLocals(false)
		require.Equal(t, 6, locals.Len())
		for _, v := range locals.Views() {
			require.Zero(t, v.Index())
			require.Nil(t, v.Offsets())
		}

		kept := d.ToLocals(true)
		require.Equal(t, 3, kept.At(3).Index())
		require.Equal(t, 1, kept.At(5).Index())
	})

	t.Run("sample locals", func(t *testing.T) {
		d := newDataset(t, TestConfig())
		out := d.SampleLocals(10, rng, true)
		require.Equal(t, 10, out.Len())
	})

	t.Run("sample locals without views warns", func(t *testing.T) {
		rec := &atomtest.WarnRecorder{}
		d := NewDataset(newDataset(t, DefaultConfig()).Items(), WithDatasetLogger(rec))

		out := d.SampleLocals(3, rng, false)
		require.Zero(t, out.Len())
		require.Len(t, rec.Warnings, 1)
	})
}

func TestDataset_Targets(t *testing.T) {
	e1, e2 := -3.0, -1.5
	a := newFixture(t, TestConfig(), WithTargets(Targets{Energy: &e1, Forces: make([]Vec3, 4)}))
	b := newOxygenPair(t, TestConfig(), WithTargets(Targets{Energy: &e2, Forces: []Vec3{{1, 0, 0}, {-1, 0, 0}}}))

	d := NewDataset([]*Configuration{a, b})
	energies, ok := d.TargetEnergies()
	require.True(t, ok)
	require.Equal(t, []float64{-3, -1.5}, energies)

	forces, ok := d.TargetForces()
	require.True(t, ok)
	require.Len(t, forces, 6)
	require.Equal(t, Vec3{-1, 0, 0}, forces[5])

	d.Add(newOxygenPair(t, TestConfig()))
	_, ok = d.TargetEnergies()
	require.False(t, ok)
	_, ok = d.TargetForces()
	require.False(t, ok)
}

func TestSampleStates(t *testing.T) {
	states := []State{
		newFixture(t, TestConfig()).State(),
		newOxygenPair(t, TestConfig()).State(),
		newOxygenPair(t, TestConfig()).State(),
	}
	states[2].Positions[1] = Vec3{1.4, 0, 0}

	t.Run("reference reproduces the sample", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		d, ref, err := SampleStates("frames", states, 2, rng, TestConfig())
		require.NoError(t, err)
		require.Equal(t, "frames", ref.Source)
		require.Len(t, ref.Indices, 2)
		require.Equal(t, 2, d.Len())

		again, err := LoadReference(ref, states, TestConfig())
		require.NoError(t, err)
		for k := range d.Len() {
			require.True(t, d.At(k).Equal(again.At(k)))
			require.Equal(t, d.At(k).NumViews(), again.At(k).NumViews())
		}
	})

	t.Run("short source warns", func(t *testing.T) {
		rec := &atomtest.WarnRecorder{}
		d, ref, err := SampleStates("frames", states, 5, rand.New(rand.NewPCG(3, 4)), TestConfig(), WithLogger(rec))
		require.NoError(t, err)
		require.Equal(t, 3, d.Len())
		require.ElementsMatch(t, []int{0, 1, 2}, ref.Indices)
		require.Len(t, rec.Warnings, 1)
	})

	t.Run("reference outside the source", func(t *testing.T) {
		_, err := LoadReference(checkpoint.Reference{Source: "frames", Indices: []int{0, 7}}, states, TestConfig())
		require.ErrorIs(t, err, ErrLengthMismatch)
	})
}
