package atomenv

import (
	"context"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/local"
)

// Dataset is an ordered collection of configurations.
//
// Operations apply to every configuration in order and stop at the first error.
type Dataset struct {
	items  []*Configuration
	logger Logger
}

// DatasetOption configures a Dataset.
type DatasetOption func(*Dataset)

// WithDatasetLogger sets the logger used for data warnings.
func WithDatasetLogger(logger Logger) DatasetOption {
	return func(d *Dataset) {
		d.logger = logger
	}
}

// NewDataset creates a dataset holding items.
func NewDataset(items []*Configuration, opts ...DatasetOption) *Dataset {
	d := &Dataset{items: slices.Clone(items)}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrNop(d.logger)

	return d
}

// Len returns the number of configurations.
func (d *Dataset) Len() int { return len(d.items) }

// At returns the k-th configuration.
func (d *Dataset) At(k int) *Configuration { return d.items[k] }

// Items returns the configurations in order.
func (d *Dataset) Items() []*Configuration { return slices.Clone(d.items) }

// Add appends configurations.
func (d *Dataset) Add(items ...*Configuration) {
	d.items = append(d.items, items...)
}

// Append appends the configurations of other.
//
// Appending a dataset to itself duplicates its current items once.
func (d *Dataset) Append(other *Dataset) {
	items := other.items
	if other == d {
		items = slices.Clone(d.items)
	}
	d.items = append(d.items, items...)
}

// Concat returns a new dataset with the items of d followed by those of other.
func (d *Dataset) Concat(other *Dataset) *Dataset {
	out := &Dataset{items: slices.Clone(d.items), logger: d.logger}
	out.Append(other)

	return out
}

// Update runs Update with opts on every configuration.
func (d *Dataset) Update(opts UpdateOptions) error {
	for _, c := range d.items {
		if _, err := c.Update(opts); err != nil {
			return err
		}
	}

	return nil
}

// GatherInPlace gathers the views of every configuration.
//
// Every rank must gather the same dataset.
func (d *Dataset) GatherInPlace(ctx context.Context) error {
	for _, c := range d.items {
		if err := c.GatherInPlace(ctx); err != nil {
			return err
		}
	}

	return nil
}

// DistributeInPlace distributes every configuration over group.
func (d *Dataset) DistributeInPlace(group ProcessGroup) error {
	for _, c := range d.items {
		if err := c.DistributeInPlace(group); err != nil {
			return err
		}
	}

	return nil
}

// IsDistributed reports whether the first configuration is distributed.
func (d *Dataset) IsDistributed() bool {
	return len(d.items) > 0 && d.items[0].IsDistributed()
}

// SpeciesSet returns the distinct species over all configurations in ascending order.
func (d *Dataset) SpeciesSet() []Species {
	set := make(map[Species]struct{})
	for _, c := range d.items {
		for _, z := range c.species {
			set[z] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(set))
}

// Pairs returns every unordered species pair: the mixed pairs (a, b) with
// a < b in lexicographic order, followed by the same-species pairs (a, a).
//
// Without species the dataset's SpeciesSet is used.
func (d *Dataset) Pairs(species ...Species) [][2]Species {
	if len(species) == 0 {
		species = d.SpeciesSet()
	}

	var out [][2]Species
	for i, a := range species {
		for _, b := range species[i+1:] {
			out = append(out, [2]Species{a, b})
		}
	}
	for _, a := range species {
		out = append(out, [2]Species{a, a})
	}

	return out
}

// Subset returns a dataset with the configurations that include any of the
// given species. The configurations are shared.
func (d *Dataset) Subset(species ...Species) *Dataset {
	out := &Dataset{logger: d.logger}
	for _, c := range d.items {
		if c.IncludesSpecies(species...) {
			out.items = append(out.items, c)
		}
	}

	return out
}

// Counts sums Configuration.Counts over the dataset.
func (d *Dataset) Counts(total bool) map[Species]int {
	out := make(map[Species]int)
	for _, c := range d.items {
		for z, n := range c.Counts(total) {
			out[z] += n
		}
	}

	return out
}

// PickRandom returns a dataset of n configurations drawn without replacement.
//
// Asking for more configurations than available logs a warning and returns
// all of them in random order.
func (d *Dataset) PickRandom(n int, rng *rand.Rand) *Dataset {
	if n > len(d.items) {
		d.logger.Warn("requested more random configurations than available",
			"requested", n,
			"available", len(d.items),
		)
		n = len(d.items)
	}

	out := &Dataset{logger: d.logger}
	for _, k := range rng.Perm(len(d.items))[:max(n, 0)] {
		out.items = append(out.items, d.items[k])
	}

	return out
}

// ToLocals detaches every held view of every configuration into a collection.
func (d *Dataset) ToLocals(keepIDs bool) *local.Collection {
	out := local.NewCollection()
	for _, c := range d.items {
		for _, v := range c.views {
			out.Append([]*View{v.Detach(keepIDs)}, false)
		}
	}

	return out
}

// SampleLocals draws size detached views with replacement: a configuration
// is picked uniformly, then one of its held views.
//
// Configurations without views are never picked. When no configuration
// holds a view a warning is logged and the collection is empty.
func (d *Dataset) SampleLocals(size int, rng *rand.Rand, keepIDs bool) *local.Collection {
	var pool []*Configuration
	for _, c := range d.items {
		if len(c.views) > 0 {
			pool = append(pool, c)
		}
	}

	out := local.NewCollection()
	if len(pool) == 0 {
		if size > 0 {
			d.logger.Warn("no views to sample from", "requested", size)
		}

		return out
	}

	for range size {
		c := pool[rng.IntN(len(pool))]
		v := c.views[rng.IntN(len(c.views))]
		out.Append([]*View{v.Detach(keepIDs)}, false)
	}

	return out
}

// TargetEnergies returns the target energy of every configuration.
//
// Returns false when any configuration has no target energy.
func (d *Dataset) TargetEnergies() ([]float64, bool) {
	out := make([]float64, len(d.items))
	for k, c := range d.items {
		if !c.targets.HasEnergy() {
			return nil, false
		}
		out[k] = *c.targets.Energy
	}

	return out, true
}

// TargetForces concatenates the target forces of every configuration.
//
// Returns false when any configuration has no target forces.
func (d *Dataset) TargetForces() ([]Vec3, bool) {
	var out []Vec3
	for _, c := range d.items {
		if !c.targets.HasForces() {
			return nil, false
		}
		out = append(out, c.targets.Forces...)
	}

	return out, true
}
