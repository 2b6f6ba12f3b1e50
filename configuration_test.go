package atomenv

import (
	"math/rand/v2"
	"testing"

	"github.com/arloliu/atomenv/strategy"
	atomtest "github.com/arloliu/atomenv/testing"
	"github.com/stretchr/testify/require"
)

var cubic4 = Cell{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}

func waterLike() ([]Species, []Vec3) {
	return []Species{1, 8, 1, 8},
		[]Vec3{{0, 0, 0}, {1.5, 0, 0}, {0, 1.5, 0}, {1.5, 1.5, 0.5}}
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *Configuration {
	t.Helper()

	species, positions := waterLike()
	c, err := New(species, positions, cubic4, PBC{true, true, true}, cfg, opts...)
	require.NoError(t, err)

	return c
}

// countFeature stores the number of selected candidates of every view.
type countFeature struct {
	name  string
	state string
	calls int
}

func (g *countFeature) Name() string  { return g.name }
func (g *countFeature) State() string { return g.state }

func (g *countFeature) Precompute(v *View) error {
	g.calls++
	v.SetFeature(g.name, []float64{float64(v.Count())})

	return nil
}

func TestNew(t *testing.T) {
	t.Run("builds a view for every atom", func(t *testing.T) {
		c := newFixture(t, TestConfig())

		require.Equal(t, 4, c.NumAtoms())
		require.Equal(t, 4, c.NumViews())
		require.Equal(t, 3.0, c.Cutoff())
		require.Equal(t, []int{0, 1, 2, 3}, c.Indices())
		require.False(t, c.IsDistributed())
		require.NotNil(t, c.NeighborList())
		for k, v := range c.Views() {
			require.Equal(t, k, v.Index())
			require.Equal(t, c.Species()[k], v.Species())
			require.Equal(t, 4, v.NumAtoms())
		}
	})

	t.Run("defers views without a cutoff", func(t *testing.T) {
		rec := &atomtest.WarnRecorder{}
		c := newFixture(t, DefaultConfig(), WithLogger(rec))

		require.Zero(t, c.NumViews())
		require.Nil(t, c.NeighborList())
		require.Equal(t, []int{0, 1, 2, 3}, c.Indices())
		require.Len(t, rec.Warnings, 1)
	})

	t.Run("stages initial generators", func(t *testing.T) {
		g := &countFeature{name: "count", state: "v1"}
		c := newFixture(t, TestConfig(), WithFeatureGenerators(g))

		require.Equal(t, 4, g.calls)
		f, ok := c.View(0).Feature("count")
		require.True(t, ok)
		require.Equal(t, []float64{float64(c.View(0).Len())}, f)
	})

	t.Run("assigns ranks from a balancer", func(t *testing.T) {
		b, err := strategy.NewBalancer(2)
		require.NoError(t, err)

		c := newFixture(t, TestConfig(), WithBalancer(b))
		require.Equal(t, []int{0, 1, 1, 0}, c.Ranks())
		require.Equal(t, []int{2, 2}, b.Totals())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		species, positions := waterLike()
		pbc := PBC{true, true, true}

		_, err := New(species[:3], positions, cubic4, pbc, TestConfig())
		require.ErrorIs(t, err, ErrLengthMismatch)

		_, err = New(species, positions, cubic4, pbc, TestConfig(), WithRanks([]int{0, 1}))
		require.ErrorIs(t, err, ErrLengthMismatch)

		_, err = New(species, positions, cubic4, pbc, TestConfig(), WithTargets(Targets{Forces: []Vec3{{}}}))
		require.ErrorIs(t, err, ErrLengthMismatch)

		_, err = New(species, positions, cubic4, pbc, TestConfig(), WithNeighborSearcher(nil))
		require.ErrorIs(t, err, ErrNeighborSearcherRequired)

		_, err = New(species, positions, cubic4, pbc, TestConfig(), WithFeatureGenerators(
			&countFeature{name: "g"}, &countFeature{name: "g"},
		))
		require.ErrorIs(t, err, ErrDuplicateFeatureGenerator)

		cfg := TestConfig()
		cfg.Cutoff = -1
		_, err = New(species, positions, cubic4, pbc, cfg)
		require.ErrorIs(t, err, ErrInvalidCutoff)

		_, err = New(species, positions, Cell{{1, 0, 0}, {1, 0, 0}, {0, 0, 1}}, pbc, TestConfig())
		require.ErrorIs(t, err, ErrDegenerateCell)
	})
}

func TestNeighborSymmetry(t *testing.T) {
	type pair struct {
		i, j int
		o    Offset
	}

	c := newFixture(t, TestConfig())
	seen := make(map[pair]bool)
	for _, v := range c.Views() {
		offs := v.Offsets()
		for k, j := range v.Neighbors() {
			seen[pair{v.Index(), j, offs[k]}] = true
		}
	}

	require.NotEmpty(t, seen)
	for p := range seen {
		require.True(t, seen[pair{p.j, p.i, p.o.Neg()}], "missing mirror of %v", p)
	}
}

func TestSelectSameSpeciesHalves(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	positions := make([]Vec3, 5)
	for k := range positions {
		positions[k] = Vec3{3 * rng.Float64(), 3 * rng.Float64(), 3 * rng.Float64()}
	}
	species := []Species{6, 6, 6, 6, 6}

	cfg := TestConfig()
	cfg.Cutoff = 3.5
	c, err := New(species, positions, Cell{{3, 0, 0}, {0, 3, 0}, {0, 0, 3}}, PBC{true, true, true}, cfg)
	require.NoError(t, err)

	total, kept := 0, 0
	for _, v := range c.Views() {
		total += v.Len()
		v.Select(6, 6, false)
		kept += v.Count()
	}

	require.Positive(t, total)
	require.Equal(t, 0, total%2)
	require.Equal(t, total/2, kept)
}

func TestSelectKeepsPeriodicImagePair(t *testing.T) {
	cfg := TestConfig()
	cfg.Cutoff = 2.5
	c, err := New(
		[]Species{1, 8},
		[]Vec3{{2, 0, 0}, {0, 0, 0}},
		Cell{{3, 0, 0}, {0, 10, 0}, {0, 0, 10}},
		PBC{true, false, false},
		cfg,
	)
	require.NoError(t, err)

	v, err := c.ViewAt(0, 1)
	require.NoError(t, err)
	v.Select(1, 8, false)

	require.Equal(t, []int{1, 1}, v.Neighbors())
	require.Equal(t, []Offset{{0, 0, 0}, {1, 0, 0}}, v.Offsets())
	require.Equal(t, []Vec3{{-2, 0, 0}, {1, 0, 0}}, v.Displacements())
}

func TestConfiguration_Update(t *testing.T) {
	t.Run("no-op without changes", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		before := c.View(0)

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Same(t, before, c.View(0))
	})

	t.Run("ignores moves within tolerance", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		pos := c.Positions()
		pos[0][0] += 1e-12
		require.NoError(t, c.SetPositions(pos))

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
	})

	t.Run("rebuilds after a move", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		before := c.View(0)
		pos := c.Positions()
		pos[1][0] += 0.1
		require.NoError(t, c.SetPositions(pos))

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.NotSame(t, before, c.View(0))
		require.False(t, before.Equal(c.View(0)))

		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
	})

	t.Run("rebuilds after cell, pbc and species changes", func(t *testing.T) {
		c := newFixture(t, TestConfig())

		c.SetCell(Cell{{5, 0, 0}, {0, 5, 0}, {0, 0, 5}})
		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)

		c.SetPBC(PBC{true, true, false})
		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)

		require.NoError(t, c.SetSpecies([]Species{1, 1, 1, 1}))
		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, []Species{1}, c.SpeciesSet())
	})

	t.Run("new cutoff rebuilds", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		refreshed, err := c.Update(UpdateOptions{Cutoff: 1.0})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 1.0, c.Cutoff())
		for _, v := range c.Views() {
			for _, d := range v.Distances() {
				require.Less(t, d, 1.0)
			}
		}

		_, err = c.Update(UpdateOptions{Cutoff: -1})
		require.ErrorIs(t, err, ErrInvalidCutoff)
	})

	t.Run("generator set changes force a refresh", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		g := &countFeature{name: "count", state: "v1"}

		refreshed, err := c.Update(UpdateOptions{FeatureGenerators: []FeatureGenerator{g}})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 4, g.calls)

		extra := &countFeature{name: "extra"}
		require.NoError(t, c.AddFeatureGenerators([]FeatureGenerator{extra}, false))
		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 8, g.calls)
		require.Equal(t, 4, extra.calls)

		require.NoError(t, c.SetFeatureGenerators([]FeatureGenerator{g, &countFeature{name: "other"}}, false))
		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 12, g.calls)
		require.NotContains(t, c.View(0).FeatureNames(), "extra")

		refreshed, err = c.Update(UpdateOptions{Force: true, SkipStage: true})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 12, g.calls)
		require.Empty(t, c.View(0).FeatureNames())

		_, err = c.Update(UpdateOptions{FeatureGenerators: []FeatureGenerator{g, g}})
		require.ErrorIs(t, err, ErrDuplicateFeatureGenerator)
	})

	t.Run("state changes restage the held views", func(t *testing.T) {
		g := &countFeature{name: "count", state: "v1"}
		other := &countFeature{name: "other", state: "v1"}
		c := newFixture(t, TestConfig(), WithFeatureGenerators(g, other))
		require.Equal(t, 4, g.calls)
		nl, view := c.NeighborList(), c.View(0)

		g.state = "v2"
		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Equal(t, 8, g.calls)
		require.Equal(t, 4, other.calls)
		require.Same(t, nl, c.NeighborList())
		require.Same(t, view, c.View(0))

		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Equal(t, 8, g.calls)

		other.state = "v2"
		refreshed, err = c.Update(UpdateOptions{SkipStage: true})
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Equal(t, 4, other.calls)

		refreshed, err = c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Equal(t, 8, other.calls)
		require.Equal(t, 8, g.calls)
		require.Same(t, view, c.View(0))
	})

	t.Run("skips staging by configuration", func(t *testing.T) {
		cfg := TestConfig()
		cfg.SkipStaging = true
		g := &countFeature{name: "count"}
		c := newFixture(t, cfg, WithFeatureGenerators(g))
		require.Zero(t, g.calls)

		require.NoError(t, c.Stage())
		require.Equal(t, 4, g.calls)
	})

	t.Run("skips views", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		refreshed, err := c.Update(UpdateOptions{Force: true, SkipViews: true})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Zero(t, c.NumViews())
		require.NotNil(t, c.NeighborList())
	})

	t.Run("requires a cutoff to refresh", func(t *testing.T) {
		c := newFixture(t, DefaultConfig())

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.False(t, refreshed)

		_, err = c.Update(UpdateOptions{Force: true})
		require.ErrorIs(t, err, ErrInvalidCutoff)

		refreshed, err = c.Update(UpdateOptions{Cutoff: 3})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 4, c.NumViews())
	})
}

func TestConfiguration_FeatureGenerators(t *testing.T) {
	a := &countFeature{name: "a", state: "1"}
	b := &countFeature{name: "b", state: "1"}
	c := newFixture(t, TestConfig(), WithFeatureGenerators(a))
	require.Equal(t, 4, a.calls)

	t.Run("add stages only the new generators", func(t *testing.T) {
		require.NoError(t, c.AddFeatureGenerators([]FeatureGenerator{b}, true))
		require.Equal(t, 4, a.calls)
		require.Equal(t, 4, b.calls)
		require.Len(t, c.FeatureGenerators(), 2)
		require.Equal(t, []string{"1", "1"}, c.FeatureStates())
	})

	t.Run("add rejects taken names", func(t *testing.T) {
		err := c.AddFeatureGenerators([]FeatureGenerator{&countFeature{name: "a"}}, true)
		require.ErrorIs(t, err, ErrDuplicateFeatureGenerator)
		require.Len(t, c.FeatureGenerators(), 2)
	})

	t.Run("features concatenate over views", func(t *testing.T) {
		f, ok := c.Features("b")
		require.True(t, ok)
		require.Len(t, f, 4)

		_, ok = c.Features("missing")
		require.False(t, ok)
	})

	t.Run("set replaces and stages", func(t *testing.T) {
		require.NoError(t, c.SetFeatureGenerators([]FeatureGenerator{b}, true))
		require.Equal(t, 8, b.calls)
		require.Len(t, c.FeatureGenerators(), 1)

		err := c.SetFeatureGenerators([]FeatureGenerator{b, b}, false)
		require.ErrorIs(t, err, ErrDuplicateFeatureGenerator)
	})
}

func TestConfiguration_Queries(t *testing.T) {
	c := newFixture(t, TestConfig())

	require.Equal(t, []Species{1, 8}, c.SpeciesSet())
	require.True(t, c.IncludesSpecies(8))
	require.True(t, c.IncludesSpecies(6, 1))
	require.False(t, c.IncludesSpecies(6))
	require.Equal(t, []int{0, 1}, c.FirstOfEachSpecies())
	require.Equal(t, map[Species]int{1: 2, 8: 2}, c.Counts(true))
	require.Equal(t, map[Species]int{1: 2, 8: 2}, c.Counts(false))

	i, err := c.FirstIndexOf(8)
	require.NoError(t, err)
	require.Equal(t, 1, i)

	_, err = c.FirstIndexOf(6)
	require.ErrorIs(t, err, ErrSpeciesNotPresent)

	v, err := c.ViewAt(3, 8)
	require.NoError(t, err)
	require.Equal(t, 3, v.Index())

	_, err = c.ViewAt(3, 1)
	require.ErrorIs(t, err, ErrSpeciesMismatch)

	_, err = c.ViewAt(9, 1)
	require.ErrorIs(t, err, ErrPartitionInconsistent)
}

func TestConfiguration_EqualAndCopy(t *testing.T) {
	c := newFixture(t, TestConfig())

	cp, err := c.Copy()
	require.NoError(t, err)
	require.True(t, c.Equal(cp))
	require.Equal(t, c.NumViews(), cp.NumViews())
	for k := range c.NumViews() {
		require.True(t, c.View(k).Equal(cp.View(k)))
		require.NotSame(t, c.View(k), cp.View(k))
	}

	pos := cp.Positions()
	pos[2][1] += 1e-12
	require.NoError(t, cp.SetPositions(pos))
	require.True(t, c.Equal(cp))

	pos[2][1] += 0.01
	require.NoError(t, cp.SetPositions(pos))
	require.False(t, c.Equal(cp))
	require.Equal(t, Vec3{0, 1.5, 0}, c.Positions()[2])

	other := newFixture(t, TestConfig())
	other.SetPBC(PBC{true, true, false})
	require.False(t, c.Equal(other))

	require.True(t, (*Configuration)(nil).Equal(nil))
	require.False(t, c.Equal(nil))
}

func TestConfiguration_State(t *testing.T) {
	energy := -12.5
	species, positions := waterLike()
	targets := Targets{Energy: &energy, Forces: make([]Vec3, 4)}

	c := newFixture(t, TestConfig(), WithTargets(targets), WithRanks([]int{0, 0, 1, 1}))
	s := c.State()
	require.Equal(t, species, s.Species)
	require.Equal(t, positions, s.Positions)
	require.Equal(t, []int{0, 0, 1, 1}, s.Ranks)

	restored, err := FromState(s, TestConfig())
	require.NoError(t, err)
	require.True(t, c.Equal(restored))
	require.Equal(t, c.Ranks(), restored.Ranks())
	require.Equal(t, -12.5, *restored.Targets().Energy)

	energy = 0
	require.Equal(t, -12.5, *c.Targets().Energy)

	s.Ranks = []int{0}
	_, err = FromState(s, TestConfig())
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestConfiguration_Mutation(t *testing.T) {
	t.Run("length checks", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		require.ErrorIs(t, c.SetPositions(make([]Vec3, 3)), ErrLengthMismatch)
		require.ErrorIs(t, c.SetSpecies(make([]Species, 5)), ErrLengthMismatch)
		require.ErrorIs(t, c.Replace(make([]Species, 2), make([]Vec3, 3)), ErrLengthMismatch)
		require.ErrorIs(t, c.SetTargets(Targets{Forces: make([]Vec3, 2)}), ErrLengthMismatch)
	})

	t.Run("replace with another atom count", func(t *testing.T) {
		c := newFixture(t, TestConfig(), WithRanks([]int{0, 0, 0, 0}), WithTargets(Targets{Forces: make([]Vec3, 4)}))

		require.NoError(t, c.Replace([]Species{8, 8}, []Vec3{{0, 0, 0}, {1.2, 0, 0}}))
		require.Nil(t, c.Ranks())
		require.False(t, c.Targets().HasForces())

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
		require.Equal(t, 2, c.NumViews())
		require.Equal(t, []int{0, 1}, c.Indices())
	})

	t.Run("shake moves atoms", func(t *testing.T) {
		c := newFixture(t, TestConfig())
		before := c.Positions()

		c.Shake(rand.New(rand.NewPCG(1, 1)), 0.05)
		require.NotEqual(t, before, c.Positions())

		refreshed, err := c.Update(UpdateOptions{})
		require.NoError(t, err)
		require.True(t, refreshed)
	})
}
