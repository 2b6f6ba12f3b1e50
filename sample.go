package atomenv

import (
	"fmt"
	"math/rand/v2"

	"github.com/arloliu/atomenv/checkpoint"
	"github.com/arloliu/atomenv/internal/logging"
)

// SampleStates builds a dataset from size randomly chosen states of source.
//
// The returned reference records the choice; LoadReference with the same
// states reproduces the dataset. A negative size takes every state. Asking for
// more states than available logs a warning on the logger of opts, if any,
// and takes all of them.
//
// Parameters:
//   - source: Name of the state source, stored in the reference
//   - states: All states of the source
//   - size: Number of states to draw
//   - rng: Random source
//   - cfg: Configuration applied to every sampled state
//   - opts: Options applied to every sampled state
//
// Returns:
//   - *Dataset: Sampled configurations
//   - checkpoint.Reference: Source and indices of the sample
//   - error: Any New error
func SampleStates(
	source string,
	states []State,
	size int,
	rng *rand.Rand,
	cfg Config,
	opts ...Option,
) (*Dataset, checkpoint.Reference, error) {
	indices, short := checkpoint.Sample(len(states), size, rng)
	ref := checkpoint.Reference{Source: source, Indices: indices}

	d, err := LoadReference(ref, states, cfg, opts...)
	if err != nil {
		return nil, checkpoint.Reference{}, err
	}

	if short {
		d.logger.Warn("requested more states than the source holds",
			"source", source,
			"requested", size,
			"available", len(states),
		)
	}

	return d, ref, nil
}

// LoadReference builds a dataset from the states a checkpoint reference points to.
//
// Returns:
//   - *Dataset: Configurations in reference order
//   - error: ErrLengthMismatch when the reference addresses states that do
//     not exist, or any New error
func LoadReference(ref checkpoint.Reference, states []State, cfg Config, opts ...Option) (*Dataset, error) {
	if err := ref.Validate(len(states)); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	items := make([]*Configuration, 0, len(ref.Indices))
	for _, i := range ref.Indices {
		c, err := FromState(states[i], cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("state %d of %s: %w", i, ref.Source, err)
		}
		items = append(items, c)
	}

	return NewDataset(items, WithDatasetLogger(logging.OrNop(o.logger))), nil
}
