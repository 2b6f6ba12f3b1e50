package strategy

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/arloliu/atomenv/types"
)

// rotationSpan bounds the random rank rotation drawn by StaticPartition.
const rotationSpan = 1024

// Range is a half-open index range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

// BalanceWork splits [0, n) into workers contiguous ranges of near-equal size.
//
// The first n % workers ranges hold one extra index. Ranges are empty when
// there are more workers than indices.
//
// Returns:
//   - []Range: One range per worker, in rank order
//   - error: ErrNoWorkers when workers < 1
func BalanceWork(n, workers int) ([]Range, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, workers)
	}

	size, extra := n/workers, n%workers
	ranges := make([]Range, workers)
	start := 0
	for r := range ranges {
		end := start + size
		if r < extra {
			end++
		}
		ranges[r] = Range{Start: start, End: end}
		start = end
	}

	return ranges, nil
}

// StaticPartition returns the atom indices owned by rank under a range split of
// n atoms across workers.
//
// With a non-nil rng the split is randomized: the atom order is permuted and
// ranks are rotated by a random offset before picking a range. Every rank must
// pass an identically seeded rng in the same state, otherwise the shares of
// different ranks overlap.
//
// Parameters:
//   - n: Number of atoms
//   - workers: Number of worker ranks
//   - rank: Rank of the caller in [0, workers)
//   - rng: Optional random source; nil selects the deterministic split
//
// Returns:
//   - []int: Owned indices (ascending when deterministic)
//   - error: ErrNoWorkers or ErrInvalidConfig for an out-of-range rank
func StaticPartition(n, workers, rank int, rng *rand.Rand) ([]int, error) {
	ranges, err := BalanceWork(n, workers)
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= workers {
		return nil, fmt.Errorf("%w: rank %d outside world of %d", types.ErrInvalidConfig, rank, workers)
	}

	if rng == nil {
		rg := ranges[rank]
		out := make([]int, 0, rg.Len())
		for i := rg.Start; i < rg.End; i++ {
			out = append(out, i)
		}

		return out, nil
	}

	shift := rng.IntN(rotationSpan)
	perm := rng.Perm(n)
	rg := ranges[(rank+shift)%workers]

	return slices.Clone(perm[rg.Start:rg.End]), nil
}

// ExplicitPartition returns the indices of the atoms assigned to rank.
func ExplicitPartition(ranks []int, rank int) []int {
	out := make([]int, 0, len(ranks)/2+1)
	for i, r := range ranks {
		if r == rank {
			out = append(out, i)
		}
	}

	return out
}
