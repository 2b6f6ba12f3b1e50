package group

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/types"
)

// ErrNotClaimed is returned when releasing a rank that was never claimed.
var ErrNotClaimed = errors.New("rank not claimed")

// RankClaimer hands out distinct ranks to processes that start without one.
//
// Ranks 0..worldSize-1 are tried in order and the first key <name>.rank.<r>
// that can be created atomically is taken.
type RankClaimer struct {
	kv     jetstream.KeyValue
	name   string
	size   int
	rank   int
	logger types.Logger
}

// NewRankClaimer creates a claimer for the group name of worldSize members.
// A nil logger discards output.
func NewRankClaimer(kv jetstream.KeyValue, name string, worldSize int, logger types.Logger) *RankClaimer {
	return &RankClaimer{
		kv:     kv,
		name:   name,
		size:   worldSize,
		rank:   -1,
		logger: logging.OrNop(logger),
	}
}

// Claim takes the lowest free rank.
//
// Returns:
//   - int: Claimed rank
//   - error: ErrRankUnavailable when every rank is taken, context or KV error otherwise
//
// Example:
//
//	claimer := group.NewRankClaimer(kv, "train", 4, logger)
//	rank, err := claimer.Claim(ctx)
//	pg, err := group.NewNATS(kv, "train", rank, 4)
//	defer claimer.Release(ctx)
func (c *RankClaimer) Claim(ctx context.Context) (int, error) {
	for r := range c.size {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		key := c.key(r)
		rev, err := c.kv.Create(ctx, key, []byte(time.Now().UTC().Format(time.RFC3339)))
		if err == nil {
			c.rank = r
			c.logger.Info("rank claimed", "group", c.name, "rank", r, "revision", rev)

			return r, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return -1, fmt.Errorf("claim rank %d of %s: %w", r, c.name, err)
		}
		c.logger.Debug("rank taken, trying next", "group", c.name, "rank", r)
	}

	c.logger.Error("no free rank", "group", c.name, "world_size", c.size)

	return -1, fmt.Errorf("%w: all %d ranks of %s are taken", types.ErrRankUnavailable, c.size, c.name)
}

// Rank returns the claimed rank, or -1.
func (c *RankClaimer) Rank() int { return c.rank }

// Release frees the claimed rank for reuse.
func (c *RankClaimer) Release(ctx context.Context) error {
	if c.rank < 0 {
		return ErrNotClaimed
	}

	if err := c.kv.Delete(ctx, c.key(c.rank)); err != nil {
		return fmt.Errorf("release rank %d of %s: %w", c.rank, c.name, err)
	}
	c.rank = -1

	return nil
}

func (c *RankClaimer) key(rank int) string {
	return c.name + ".rank." + strconv.Itoa(rank)
}
