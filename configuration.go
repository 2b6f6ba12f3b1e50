package atomenv

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/arloliu/atomenv/changes"
	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/internal/metrics"
	"github.com/arloliu/atomenv/neighbor"
	"github.com/arloliu/atomenv/strategy"
)

// Configuration is one atomic structure together with its neighbor list and
// the pairwise views of the atoms it owns.
//
// Configuration manages:
//   - Geometry (species, positions, cell, periodic flags) and optional targets
//   - The neighbor list, rebuilt through the NeighborSearcher on demand
//   - One View per owned atom, rebuilt wholesale on every refresh
//   - Change detection against the geometry of the last refresh
//   - Atom ownership across the ranks of an attached ProcessGroup
//
// A Configuration is owned by a single goroutine; it is not safe for
// concurrent use. In a distributed run every rank holds its own Configuration
// for the same structure.
type Configuration struct {
	cfg Config

	species   []Species
	positions []Vec3
	cell      Cell
	pbc       PBC
	targets   Targets
	ranks     []int

	searcher   NeighborSearcher
	generators []FeatureGenerator
	group      ProcessGroup
	store      ScratchStore
	rng        *rand.Rand
	logger     Logger
	metrics    MetricsCollector

	cutoff   float64
	nl       *NeighborList
	indices  []int
	views    []*View
	tracker  *changes.Tracker
	replaced bool // generator set replaced since the last refresh
}

var (
	_ changes.Source      = (*Configuration)(nil)
	_ strategy.Assignable = (*Configuration)(nil)
)

// State is the serializable geometry of a Configuration.
type State struct {
	Species   []Species `json:"species" yaml:"species"`
	Positions []Vec3    `json:"positions" yaml:"positions"`
	Cell      Cell      `json:"cell" yaml:"cell"`
	PBC       PBC       `json:"pbc" yaml:"pbc"`
	Ranks     []int     `json:"ranks,omitempty" yaml:"ranks,omitempty"`
	Targets   Targets   `json:"targets" yaml:"targets"`
}

// New creates a configuration.
//
// When cfg.Cutoff is positive the neighbor list and the views of the owned
// atoms are built right away; otherwise they are built by the first Update
// that supplies a cutoff.
//
// Parameters:
//   - species: Species of every atom
//   - positions: Cartesian position of every atom
//   - cell: Lattice vectors (rows)
//   - pbc: Periodic axes
//   - cfg: Configuration (missing values take their defaults)
//   - opts: Optional collaborators (WithNeighborSearcher, WithGroup, WithScratch, ...)
//
// Returns:
//   - *Configuration: Configuration ready for use
//   - error: ErrLengthMismatch, ErrDuplicateFeatureGenerator, a Validate error,
//     or the error of the initial neighbor search
//
// Example:
//
//	cfg := atomenv.DefaultConfig()
//	cfg.Cutoff = 6.0
//	c, err := atomenv.New(species, positions, cell, atomenv.PBC{true, true, true}, cfg)
//	if err != nil {
//	    return err
//	}
//	for _, v := range c.Views() {
//	    fmt.Println(v.Index(), v.Count())
//	}
func New(species []Species, positions []Vec3, cell Cell, pbc PBC, cfg Config, opts ...Option) (*Configuration, error) {
	if len(species) != len(positions) {
		return nil, fmt.Errorf("%w: %d species for %d positions", ErrLengthMismatch, len(species), len(positions))
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &options{}
	for _, opt := range opts {
		opt(options)
	}

	logger := logging.OrNop(options.logger)
	cfg.ValidateWithWarnings(logger)

	searcher := options.searcher
	if !options.searcherSet {
		searcher = neighbor.NewBruteForce()
	}
	if searcher == nil {
		return nil, ErrNeighborSearcherRequired
	}

	if err := checkGeneratorNames(options.generators); err != nil {
		return nil, err
	}

	c := &Configuration{
		cfg:        cfg,
		species:    slices.Clone(species),
		positions:  slices.Clone(positions),
		cell:       cell,
		pbc:        pbc,
		searcher:   searcher,
		generators: options.generators,
		group:      options.group,
		store:      options.scratch,
		rng:        options.rng,
		logger:     logger,
		metrics:    metrics.OrNop(options.metrics),
	}

	if options.targets != nil {
		if err := c.SetTargets(*options.targets); err != nil {
			return nil, err
		}
	}

	switch {
	case options.ranks != nil:
		if len(options.ranks) != len(species) {
			return nil, fmt.Errorf("%w: %d ranks for %d atoms", ErrLengthMismatch, len(options.ranks), len(species))
		}
		c.ranks = options.ranks
	case options.balancer != nil:
		options.balancer.Assign(c)
	}

	c.tracker = changes.NewTracker(c, cfg.Tolerance)

	if cfg.Cutoff > 0 {
		if err := c.BuildNeighborList(cfg.Cutoff); err != nil {
			return nil, err
		}

		return c, nil
	}

	if err := c.Partition(true); err != nil {
		return nil, err
	}

	return c, nil
}

// FromState creates a configuration from a stored state.
//
// Ranks and target forces stored in the state must hold one entry per atom.
//
// Returns:
//   - *Configuration: Restored configuration
//   - error: ErrLengthMismatch for a state whose arrays disagree, or any New error
func FromState(s State, cfg Config, opts ...Option) (*Configuration, error) {
	base := []Option{WithTargets(s.Targets)}
	if s.Ranks != nil {
		base = append(base, WithRanks(s.Ranks))
	}

	return New(s.Species, s.Positions, s.Cell, s.PBC, cfg, append(base, opts...)...)
}

// State returns a copy of the geometry, ranks and targets.
func (c *Configuration) State() State {
	return State{
		Species:   slices.Clone(c.species),
		Positions: slices.Clone(c.positions),
		Cell:      c.cell,
		PBC:       c.pbc,
		Ranks:     slices.Clone(c.ranks),
		Targets:   cloneTargets(c.targets),
	}
}

// NumAtoms returns the number of atoms.
func (c *Configuration) NumAtoms() int { return len(c.species) }

// Species returns the species of every atom.
func (c *Configuration) Species() []Species { return slices.Clone(c.species) }

// Positions returns the position of every atom.
func (c *Configuration) Positions() []Vec3 { return slices.Clone(c.positions) }

// Cell returns the lattice vectors.
func (c *Configuration) Cell() Cell { return c.cell }

// PBC returns the periodic flags.
func (c *Configuration) PBC() PBC { return c.pbc }

// Cutoff returns the cutoff of the current neighbor list, or zero before the first build.
func (c *Configuration) Cutoff() float64 { return c.cutoff }

// Config returns the effective configuration.
func (c *Configuration) Config() Config { return c.cfg }

// FeatureStates returns the state tokens of the attached feature generators.
func (c *Configuration) FeatureStates() []string {
	out := make([]string, len(c.generators))
	for k, g := range c.generators {
		out[k] = g.State()
	}

	return out
}

// FeatureGenerators returns the attached feature generators.
func (c *Configuration) FeatureGenerators() []FeatureGenerator {
	return slices.Clone(c.generators)
}

// Ranks returns the explicit per-atom ranks, or nil when none are set.
func (c *Configuration) Ranks() []int { return slices.Clone(c.ranks) }

// SetRanks stores explicit per-atom ranks.
//
// Ownership follows the new ranks on the next Partition, BuildNeighborList or
// group attachment. Passing nil returns to the range split.
func (c *Configuration) SetRanks(ranks []int) { c.ranks = slices.Clone(ranks) }

// SetPositions replaces the atom positions.
//
// Views are not touched; the next Update notices the move.
//
// Returns ErrLengthMismatch when positions has a different atom count.
func (c *Configuration) SetPositions(positions []Vec3) error {
	if len(positions) != len(c.species) {
		return fmt.Errorf("%w: %d positions for %d atoms", ErrLengthMismatch, len(positions), len(c.species))
	}
	c.positions = slices.Clone(positions)

	return nil
}

// SetCell replaces the lattice vectors.
func (c *Configuration) SetCell(cell Cell) { c.cell = cell }

// SetPBC replaces the periodic flags.
func (c *Configuration) SetPBC(pbc PBC) { c.pbc = pbc }

// SetSpecies replaces the species of every atom.
//
// Returns ErrLengthMismatch when species has a different atom count.
func (c *Configuration) SetSpecies(species []Species) error {
	if len(species) != len(c.species) {
		return fmt.Errorf("%w: %d species for %d atoms", ErrLengthMismatch, len(species), len(c.species))
	}
	c.species = slices.Clone(species)

	return nil
}

// Replace swaps in a new set of atoms, possibly of a different count.
//
// Explicit ranks and target forces no longer match a new atom count and are
// dropped in that case. The next Update rebuilds the neighbor list.
func (c *Configuration) Replace(species []Species, positions []Vec3) error {
	if len(species) != len(positions) {
		return fmt.Errorf("%w: %d species for %d positions", ErrLengthMismatch, len(species), len(positions))
	}

	if len(species) != len(c.species) {
		if c.ranks != nil {
			c.logger.Debug("dropping explicit ranks after atom count change",
				"old", len(c.species), "new", len(species))
			c.ranks = nil
		}
		c.targets.Forces = nil
	}

	c.species = slices.Clone(species)
	c.positions = slices.Clone(positions)

	return nil
}

// Shake displaces every coordinate by a Laplace-distributed amount with
// scale beta. Call Update afterwards to refresh the views.
func (c *Configuration) Shake(rng *rand.Rand, beta float64) {
	for k := range c.positions {
		for d := range 3 {
			c.positions[k][d] += laplace(rng, beta)
		}
	}
}

// Targets returns a copy of the reference values.
func (c *Configuration) Targets() Targets { return cloneTargets(c.targets) }

// SetTargets replaces the reference values.
//
// Returns ErrLengthMismatch when forces are set but not one per atom.
func (c *Configuration) SetTargets(t Targets) error {
	if t.HasForces() && len(t.Forces) != len(c.species) {
		return fmt.Errorf("%w: %d target forces for %d atoms", ErrLengthMismatch, len(t.Forces), len(c.species))
	}
	c.targets = cloneTargets(t)

	return nil
}

// SpeciesSet returns the distinct species in ascending order.
func (c *Configuration) SpeciesSet() []Species {
	set := make(map[Species]struct{}, len(c.species))
	for _, z := range c.species {
		set[z] = struct{}{}
	}

	return slices.Sorted(maps.Keys(set))
}

// IncludesSpecies reports whether any atom has one of the given species.
func (c *Configuration) IncludesSpecies(species ...Species) bool {
	for _, z := range c.species {
		if slices.Contains(species, z) {
			return true
		}
	}

	return false
}

// FirstOfEachSpecies returns the index of the first atom of every species,
// in order of first appearance.
func (c *Configuration) FirstOfEachSpecies() []int {
	seen := make(map[Species]bool)
	var out []int
	for i, z := range c.species {
		if !seen[z] {
			seen[z] = true
			out = append(out, i)
		}
	}

	return out
}

// FirstIndexOf returns the index of the first atom of species z.
//
// Returns ErrSpeciesNotPresent when no atom has species z.
func (c *Configuration) FirstIndexOf(z Species) (int, error) {
	i := slices.Index(c.species, z)
	if i < 0 {
		return 0, fmt.Errorf("%w: species %d", ErrSpeciesNotPresent, z)
	}

	return i, nil
}

// Counts returns the number of atoms per species.
//
// With total false only the atoms of the held views are counted.
func (c *Configuration) Counts(total bool) map[Species]int {
	out := make(map[Species]int)
	if total {
		for _, z := range c.species {
			out[z]++
		}

		return out
	}

	for _, v := range c.views {
		out[v.Species()]++
	}

	return out
}

// Equal reports whether two configurations describe the same structure.
//
// Atom count, species and periodic flags must match exactly; positions and
// cell are compared with the tolerance of c. Views, feature generators,
// ranks and targets are ignored.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.species) != len(other.species) || c.pbc != other.pbc {
		return false
	}
	if !slices.Equal(c.species, other.species) {
		return false
	}

	tol := c.cfg.Tolerance
	for k := range c.cell {
		if !tol.CloseVec(c.cell[k], other.cell[k]) {
			return false
		}
	}
	for k := range c.positions {
		if !tol.CloseVec(c.positions[k], other.positions[k]) {
			return false
		}
	}

	return true
}

// Copy returns an independent configuration with the same geometry, ranks,
// targets and collaborators.
//
// The copy owns the same atoms as c. When c has a neighbor list the copy
// builds its own with the same cutoff and feature generators.
//
// Returns:
//   - *Configuration: The copy
//   - error: Error of the copy's neighbor search
func (c *Configuration) Copy() (*Configuration, error) {
	cp := &Configuration{
		cfg:        c.cfg,
		species:    slices.Clone(c.species),
		positions:  slices.Clone(c.positions),
		cell:       c.cell,
		pbc:        c.pbc,
		targets:    cloneTargets(c.targets),
		ranks:      slices.Clone(c.ranks),
		searcher:   c.searcher,
		generators: slices.Clone(c.generators),
		group:      c.group,
		store:      c.store,
		rng:        c.rng,
		logger:     c.logger,
		metrics:    c.metrics,
		cutoff:     c.cutoff,
		indices:    slices.Clone(c.indices),
	}
	cp.tracker = changes.NewTracker(cp, cp.cfg.Tolerance)

	if cp.cutoff > 0 {
		if err := cp.refresh(true, !cp.cfg.SkipStaging); err != nil {
			return nil, err
		}
	}

	return cp, nil
}

func cloneTargets(t Targets) Targets {
	out := Targets{Forces: slices.Clone(t.Forces)}
	if t.Energy != nil {
		e := *t.Energy
		out.Energy = &e
	}
	if t.Stress != nil {
		s := *t.Stress
		out.Stress = &s
	}

	return out
}

func laplace(rng *rand.Rand, beta float64) float64 {
	u := rng.Float64() - 0.5
	for u == -0.5 {
		u = rng.Float64() - 0.5
	}
	if u < 0 {
		return beta * math.Log(1+2*u)
	}

	return -beta * math.Log(1-2*u)
}
