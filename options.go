package atomenv

import (
	"math/rand/v2"
	"slices"

	"github.com/arloliu/atomenv/strategy"
)

// Option configures a Configuration with optional collaborators.
type Option func(*options)

// options holds optional Configuration dependencies.
type options struct {
	logger      Logger
	metrics     MetricsCollector
	searcher    NeighborSearcher
	searcherSet bool
	generators  []FeatureGenerator
	ranks       []int
	balancer    *strategy.Balancer
	group       ProcessGroup
	scratch     ScratchStore
	rng         *rand.Rand
	targets     *Targets
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for New
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for New
//
// Example:
//
//	m := atomenv.NewPrometheusMetrics(prometheus.DefaultRegisterer, "atomenv")
//	c, err := atomenv.New(species, positions, cell, pbc, cfg, atomenv.WithMetrics(m))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithNeighborSearcher sets the neighbor searcher.
//
// Without this option a neighbor.BruteForce searcher is used. Passing nil
// makes New fail with ErrNeighborSearcherRequired.
func WithNeighborSearcher(searcher NeighborSearcher) Option {
	return func(o *options) {
		o.searcher = searcher
		o.searcherSet = true
	}
}

// WithFeatureGenerators sets the initial feature generators.
//
// Names must be unique; New fails with ErrDuplicateFeatureGenerator otherwise.
func WithFeatureGenerators(generators ...FeatureGenerator) Option {
	return func(o *options) {
		o.generators = slices.Clone(generators)
	}
}

// WithRanks sets explicit per-atom worker ranks.
//
// A distributed configuration with ranks owns exactly the atoms whose rank
// equals the local rank of its group.
func WithRanks(ranks []int) Option {
	return func(o *options) {
		o.ranks = slices.Clone(ranks)
	}
}

// WithBalancer assigns per-atom ranks from a load balancer during New.
//
// It is ignored when WithRanks is also given.
//
// Example:
//
//	b, _ := strategy.NewBalancer(4)
//	for _, frame := range frames {
//	    c, err := atomenv.New(frame.Species, frame.Positions, cell, pbc, cfg,
//	        atomenv.WithBalancer(b),
//	        atomenv.WithGroup(pg),
//	    )
//	}
func WithBalancer(balancer *strategy.Balancer) Option {
	return func(o *options) {
		o.balancer = balancer
	}
}

// WithGroup attaches a process group, making the configuration distributed.
func WithGroup(group ProcessGroup) Option {
	return func(o *options) {
		o.group = group
	}
}

// WithScratch sets the scratch store used by Gather.
//
// The same store, or stores backed by the same storage, must be given to the
// configuration on every rank.
func WithScratch(store ScratchStore) Option {
	return func(o *options) {
		o.scratch = store
	}
}

// WithRand sets the random source of the randomized partition.
//
// Every rank must use a source with the same seed and advance it identically,
// otherwise the shares of different ranks overlap. Without a source the
// deterministic range split is used.
//
// Example:
//
//	rng := rand.New(rand.NewPCG(seed, 0)) // same seed on every rank
//	c, err := atomenv.New(species, positions, cell, pbc, cfg, atomenv.WithGroup(pg), atomenv.WithRand(rng))
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithTargets sets the reference values of the configuration.
//
// The forces, when present, must hold one vector per atom.
func WithTargets(targets Targets) Option {
	return func(o *options) {
		t := cloneTargets(targets)
		o.targets = &t
	}
}
