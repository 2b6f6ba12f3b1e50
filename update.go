package atomenv

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/arloliu/atomenv/local"
	"github.com/arloliu/atomenv/strategy"
)

// UpdateOptions controls a single Update call.
type UpdateOptions struct {
	// Cutoff, when positive, replaces the cutoff and forces a new neighbor list.
	Cutoff float64

	// FeatureGenerators, when non-nil, replaces the attached generators and
	// forces a refresh. Names must be unique.
	//
	// Without it, generators whose state token changed are restaged on the
	// held views; the neighbor list is kept unless something else forces a
	// refresh.
	FeatureGenerators []FeatureGenerator

	// Force refreshes the neighbor list and views even without changes.
	Force bool

	// SkipViews refreshes the neighbor list but leaves the configuration
	// without views.
	SkipViews bool

	// SkipStage builds the views without running the feature generators.
	SkipStage bool
}

// BuildNeighborList sets the cutoff, repartitions the atoms and rebuilds the
// neighbor list and the views of the owned atoms.
//
// Every atom is searched with radius cutoff/2, without self interaction and
// with both directions of every pair.
//
// Parameters:
//   - cutoff: Neighbor cutoff radius (must be positive)
//
// Returns:
//   - error: ErrInvalidCutoff, a partition error, or the searcher's error
func (c *Configuration) BuildNeighborList(cutoff float64) error {
	if err := checkCutoff(cutoff); err != nil {
		return err
	}
	c.cutoff = cutoff

	if err := c.Partition(true); err != nil {
		return err
	}

	return c.refresh(true, !c.cfg.SkipStaging)
}

// Partition recomputes the atoms owned by the local rank.
//
// Without a process group every atom is owned. With one, explicit ranks
// decide ownership when set; otherwise the atoms are split in contiguous
// near-equal ranges over the world size. With randomize, a random source
// (WithRand) and Config.DeterministicPartition unset, the split is randomized.
//
// Views are not rebuilt; they follow the new ownership on the next refresh.
//
// Returns:
//   - error: ErrNoWorkers for an empty group, ErrPartitionInconsistent for
//     explicit ranks outside the group
func (c *Configuration) Partition(randomize bool) error {
	n := len(c.species)
	if c.group == nil {
		c.indices = make([]int, n)
		for i := range c.indices {
			c.indices[i] = i
		}

		return nil
	}

	rank, workers := c.group.Rank(), c.group.WorldSize()

	if c.ranks != nil {
		if len(c.ranks) != n {
			return fmt.Errorf("%w: %d ranks for %d atoms", ErrLengthMismatch, len(c.ranks), n)
		}
		for i, r := range c.ranks {
			if r < 0 || r >= workers {
				return fmt.Errorf("%w: atom %d assigned to rank %d of %d", ErrPartitionInconsistent, i, r, workers)
			}
		}
		c.indices = strategy.ExplicitPartition(c.ranks, rank)

		return nil
	}

	rng := c.rng
	if !randomize || c.cfg.DeterministicPartition {
		rng = nil
	}

	indices, err := strategy.StaticPartition(n, workers, rank, rng)
	if err != nil {
		return err
	}
	c.indices = indices

	return nil
}

// Indices returns the atoms owned by the local rank.
func (c *Configuration) Indices() []int { return slices.Clone(c.indices) }

// NeighborList returns the current neighbor list, or nil before the first build.
func (c *Configuration) NeighborList() *NeighborList { return c.nl }

// Update brings the neighbor list and views in line with the current geometry.
//
// Decision table:
//
//	cutoff given, or species/count changed  -> new neighbor list, repartition
//	feature-generator set changed           -> forced
//	forced, or any geometry changed         -> search, rebuild views, re-snapshot
//	only generator state tokens changed     -> restage those generators, no refresh
//	otherwise                               -> no-op
//
// A restage is skipped, and stays pending, when staging is disabled by
// UpdateOptions.SkipStage or Config.SkipStaging.
//
// Parameters:
//   - opts: Cutoff, generators and flags for this call
//
// Returns:
//   - bool: true when the neighbor list was refreshed
//   - error: ErrInvalidCutoff when a refresh is needed but no cutoff is known,
//     ErrDuplicateFeatureGenerator, or a partition or search error
func (c *Configuration) Update(opts UpdateOptions) (bool, error) {
	if opts.Cutoff != 0 {
		if err := checkCutoff(opts.Cutoff); err != nil {
			return false, err
		}
	}

	forced := opts.Force

	if opts.Cutoff > 0 || c.tracker.Species() {
		if opts.Cutoff > 0 {
			c.cutoff = opts.Cutoff
		}
		if err := c.Partition(true); err != nil {
			return false, err
		}
		forced = true
	}

	switch {
	case opts.FeatureGenerators != nil:
		if err := checkGeneratorNames(opts.FeatureGenerators); err != nil {
			return false, err
		}
		c.generators = slices.Clone(opts.FeatureGenerators)
		forced = true
	case c.replaced || c.tracker.FeatureCount():
		forced = true
	}

	if !forced && !c.tracker.AnyGeometry() {
		if c.tracker.AnyFeatureState() {
			return false, c.restage(opts)
		}

		return false, nil
	}

	if c.cutoff <= 0 {
		return false, fmt.Errorf("%w: no cutoff set, pass one with UpdateOptions.Cutoff", ErrInvalidCutoff)
	}

	if err := c.refresh(!opts.SkipViews, !opts.SkipStage && !c.cfg.SkipStaging); err != nil {
		return false, err
	}

	return true, nil
}

// Stage runs feature generators on every held view.
//
// Without arguments the attached generators are used.
//
// Returns:
//   - error: First generator error, wrapped with the generator name and atom index
func (c *Configuration) Stage(generators ...FeatureGenerator) error {
	if len(generators) == 0 {
		generators = c.generators
	}

	return c.stage(c.views, generators)
}

// SetFeatureGenerators replaces the attached feature generators.
//
// With stage the held views are staged with the new set right away. The next
// Update sees the replaced set and refreshes.
//
// Returns ErrDuplicateFeatureGenerator when two generators share a name.
func (c *Configuration) SetFeatureGenerators(generators []FeatureGenerator, stage bool) error {
	if err := checkGeneratorNames(generators); err != nil {
		return err
	}
	c.generators = slices.Clone(generators)
	c.replaced = true

	if stage {
		return c.Stage()
	}

	return nil
}

// AddFeatureGenerators appends feature generators to the attached set.
//
// With stage only the added generators run on the held views.
//
// Returns ErrDuplicateFeatureGenerator, leaving the set unchanged, when a
// name is already taken.
func (c *Configuration) AddFeatureGenerators(generators []FeatureGenerator, stage bool) error {
	merged := append(slices.Clone(c.generators), generators...)
	if err := checkGeneratorNames(merged); err != nil {
		return err
	}
	c.generators = merged

	if stage && len(generators) > 0 {
		return c.Stage(generators...)
	}

	return nil
}

// Views returns the held views in index order of the owned atoms.
func (c *Configuration) Views() []*View { return slices.Clone(c.views) }

// NumViews returns the number of held views.
func (c *Configuration) NumViews() int { return len(c.views) }

// View returns the k-th held view.
func (c *Configuration) View(k int) *View { return c.views[k] }

// ViewAt returns the held view of atom index, checking that the atom has species z.
//
// Returns:
//   - *View: View of atom index
//   - error: ErrSpeciesMismatch when atom index has another species,
//     ErrPartitionInconsistent when its view is not held by this rank
func (c *Configuration) ViewAt(index int, z Species) (*View, error) {
	if index < 0 || index >= len(c.species) {
		return nil, fmt.Errorf("%w: atom %d of %d", ErrPartitionInconsistent, index, len(c.species))
	}
	if c.species[index] != z {
		return nil, fmt.Errorf("%w: atom %d has species %d, not %d", ErrSpeciesMismatch, index, c.species[index], z)
	}

	for _, v := range c.views {
		if v.Index() == index {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: view of atom %d is not held", ErrPartitionInconsistent, index)
}

// Features concatenates the named feature of every held view in order.
//
// Returns false when any held view lacks the feature.
func (c *Configuration) Features(name string) ([]float64, bool) {
	var out []float64
	for _, v := range c.views {
		f, ok := v.Feature(name)
		if !ok {
			return nil, false
		}
		out = append(out, f...)
	}

	return out, true
}

// refresh runs a full neighbor search against the current geometry, rebuilds
// the views of the owned atoms and makes the current state the new reference.
func (c *Configuration) refresh(buildViews, stage bool) error {
	n := len(c.species)
	radii := make([]float64, n)
	for i := range radii {
		radii[i] = c.cutoff / 2
	}

	start := time.Now()
	nl, err := c.searcher.Search(NeighborQuery{
		Positions: c.positions,
		Cell:      c.cell,
		PBC:       c.pbc,
		Radii:     radii,
		Bothways:  true,
	})
	if err != nil {
		return fmt.Errorf("neighbor search: %w", err)
	}
	if nl.Len() != n {
		return fmt.Errorf("%w: neighbor list covers %d of %d atoms", ErrLengthMismatch, nl.Len(), n)
	}
	c.metrics.RecordNeighborListBuild(n, time.Since(start).Seconds())
	c.nl = nl

	c.views = nil
	if buildViews {
		views, err := c.buildViews()
		if err != nil {
			return err
		}
		c.views = views
		c.metrics.RecordViewsBuilt(len(views))

		if stage {
			if err := c.stage(views, c.generators); err != nil {
				return err
			}
		}
	}

	c.tracker.Snapshot()
	c.replaced = false
	c.logger.Debug("neighbor list refreshed",
		"atoms", n,
		"views", len(c.views),
		"cutoff", c.cutoff,
	)

	return nil
}

func (c *Configuration) buildViews() ([]*View, error) {
	views := make([]*View, 0, len(c.indices))
	for _, a := range c.indices {
		v, err := c.buildView(a)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}

	return views, nil
}

// buildView creates the view of atom a with r = pos[j] - pos[a] + offset·cell.
func (c *Configuration) buildView(a int) (*View, error) {
	js, offs := c.nl.Neighbors(a)
	nspecies := make([]Species, len(js))
	disp := make([]Vec3, len(js))
	for k, j := range js {
		nspecies[k] = c.species[j]
		disp[k] = c.positions[j].Sub(c.positions[a]).Add(c.cell.Apply(offs[k]))
	}
	if offs == nil {
		offs = []Offset{}
	}

	v, err := local.New(a, c.species[a], js, nspecies, disp, offs)
	if err != nil {
		return nil, err
	}
	v.SetNumAtoms(len(c.species))

	return v, nil
}

func (c *Configuration) stage(views []*View, generators []FeatureGenerator) error {
	if len(generators) == 0 || len(views) == 0 {
		return nil
	}

	start := time.Now()
	for _, v := range views {
		if err := v.Stage(generators); err != nil {
			return err
		}
	}
	c.metrics.RecordStage(len(views), time.Since(start).Seconds())

	return nil
}

// restage reruns the generators whose state token changed on the held views
// and takes a new feature snapshot.
func (c *Configuration) restage(opts UpdateOptions) error {
	if opts.SkipStage || c.cfg.SkipStaging {
		return nil
	}

	changed := c.tracker.FeatureState()
	stale := make([]FeatureGenerator, 0, len(changed))
	for k, g := range c.generators {
		if changed[k] {
			stale = append(stale, g)
		}
	}

	if err := c.stage(c.views, stale); err != nil {
		return err
	}
	c.tracker.SnapshotFeatures()
	c.logger.Debug("feature generators restaged",
		"generators", len(stale),
		"views", len(c.views),
	)

	return nil
}

func checkCutoff(cutoff float64) error {
	if !(cutoff > 0) || math.IsInf(cutoff, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCutoff, cutoff)
	}

	return nil
}

func checkGeneratorNames(generators []FeatureGenerator) error {
	seen := make(map[string]bool, len(generators))
	for _, g := range generators {
		if seen[g.Name()] {
			return fmt.Errorf("%w: %q", ErrDuplicateFeatureGenerator, g.Name())
		}
		seen[g.Name()] = true
	}

	return nil
}
