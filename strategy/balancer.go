package strategy

import (
	"fmt"
	"maps"
	"slices"

	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/internal/metrics"
	"github.com/arloliu/atomenv/types"
)

// Assignable is a configuration whose atoms can be assigned to ranks.
type Assignable interface {
	// Species returns the species of every atom.
	Species() []types.Species

	// Ranks returns the stored per-atom ranks, or nil when none are assigned.
	Ranks() []int

	// SetRanks stores per-atom ranks.
	SetRanks(ranks []int)
}

// Balancer assigns atoms to worker ranks with a greedy, species-aware heuristic.
//
// Each atom goes to the rank minimizing (total count, count for the atom's
// species, rank id). Counters are updated after every atom, so atoms later in
// the same configuration see the earlier assignments.
//
// A Balancer is owned by one goroutine; it is not safe for concurrent use.
type Balancer struct {
	workers int
	loads   map[types.Species][]int
	totals  []int
	logger  types.Logger
	metrics types.MetricsCollector
}

// BalancerOption configures a Balancer.
type BalancerOption func(*Balancer)

// WithBalancerLogger sets the logger used for assignment diagnostics.
func WithBalancerLogger(logger types.Logger) BalancerOption {
	return func(b *Balancer) {
		b.logger = logger
	}
}

// WithBalancerMetrics sets the collector notified of every rank assignment.
func WithBalancerMetrics(m types.MetricsCollector) BalancerOption {
	return func(b *Balancer) {
		b.metrics = m
	}
}

// NewBalancer creates a balancer for the given number of workers.
//
// Parameters:
//   - workers: Number of worker ranks (must be positive)
//   - opts: Optional configuration (WithBalancerLogger, WithBalancerMetrics)
//
// Returns:
//   - *Balancer: Balancer with all counters at zero
//   - error: ErrNoWorkers when workers < 1
//
// Example:
//
//	b, err := strategy.NewBalancer(4)
//	for _, c := range configurations {
//	    b.Assign(c)
//	}
func NewBalancer(workers int, opts ...BalancerOption) (*Balancer, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, workers)
	}

	b := &Balancer{
		workers: workers,
		loads:   make(map[types.Species][]int),
		totals:  make([]int, workers),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger)
	b.metrics = metrics.OrNop(b.metrics)

	return b, nil
}

// WorldSize returns the number of worker ranks.
func (b *Balancer) WorldSize() int { return b.workers }

// Assign assigns every atom of a to a rank and stores the ranks on a.
//
// A configuration that already carries ranks is left untouched; use Load to
// account for it instead.
//
// Returns:
//   - []int: The ranks of a, newly assigned or existing
func (b *Balancer) Assign(a Assignable) []int {
	if ranks := a.Ranks(); ranks != nil {
		return ranks
	}

	species := a.Species()
	ranks := make([]int, len(species))
	for k, z := range species {
		counts := b.countsFor(z)
		best := 0
		for r := 1; r < b.workers; r++ {
			if b.totals[r] < b.totals[best] ||
				(b.totals[r] == b.totals[best] && counts[r] < counts[best]) {
				best = r
			}
		}
		counts[best]++
		b.totals[best]++
		ranks[k] = best
		b.metrics.RecordRankAssignment(best, z)
	}
	a.SetRanks(ranks)

	b.logger.Debug("assigned atoms to ranks", "atoms", len(ranks), "workers", b.workers)

	return ranks
}

// Load adds the counts of a configuration whose ranks are already fixed.
//
// A configuration without ranks is ignored.
//
// Returns:
//   - error: ErrLengthMismatch when ranks and species differ in length, or
//     ErrInvalidConfig when a rank is outside [0, WorldSize())
func (b *Balancer) Load(a Assignable) error {
	return b.adjust(a, 1)
}

// Unload removes the counts of a configuration previously assigned or loaded.
//
// The stored ranks are kept, so the configuration can be loaded into this or
// another balancer later.
func (b *Balancer) Unload(a Assignable) error {
	return b.adjust(a, -1)
}

// Counts returns the per-rank counts of one species.
func (b *Balancer) Counts(z types.Species) []int {
	if c, ok := b.loads[z]; ok {
		return slices.Clone(c)
	}

	return make([]int, b.workers)
}

// Totals returns the per-rank totals over all species.
func (b *Balancer) Totals() []int {
	return slices.Clone(b.totals)
}

// Species returns every species seen so far in ascending order.
func (b *Balancer) Species() []types.Species {
	return slices.Sorted(maps.Keys(b.loads))
}

func (b *Balancer) adjust(a Assignable, delta int) error {
	ranks := a.Ranks()
	if ranks == nil {
		return nil
	}

	species := a.Species()
	if len(ranks) != len(species) {
		return fmt.Errorf("%w: %d ranks for %d atoms", types.ErrLengthMismatch, len(ranks), len(species))
	}
	for k, r := range ranks {
		if r < 0 || r >= b.workers {
			return fmt.Errorf("%w: atom %d has rank %d, world size is %d", types.ErrInvalidConfig, k, r, b.workers)
		}
	}

	for k, z := range species {
		b.countsFor(z)[ranks[k]] += delta
		b.totals[ranks[k]] += delta
	}

	return nil
}

func (b *Balancer) countsFor(z types.Species) []int {
	c, ok := b.loads[z]
	if !ok {
		c = make([]int, b.workers)
		b.loads[z] = c
	}

	return c
}
