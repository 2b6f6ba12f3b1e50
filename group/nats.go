package group

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/atomenv/internal/kvutil"
	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/types"
)

var tokenPattern = regexp.MustCompile(`^[-_a-zA-Z0-9]+$`)

// cleanupTimeout bounds the removal of a member's own barrier key.
const cleanupTimeout = 2 * time.Second

// NATS is a ProcessGroup whose barrier is a set of JetStream KV keys.
//
// Generation g of the barrier completes once the bucket holds the key
// <name>.<run>.<g>.<rank> of every rank, or <name>.<g>.<rank> without a run ID.
// Each member watches the generation prefix before writing its own key, so
// arrivals that happen before the watch starts are still counted. A member
// removes its own key when it leaves the barrier, whether it passed or gave
// up, so a later run reusing the group name starts from an empty generation.
type NATS struct {
	kv     jetstream.KeyValue
	name   string
	runID  string
	rank   int
	size   int
	gen    uint64
	logger types.Logger
}

var _ types.ProcessGroup = (*NATS)(nil)

// NATSOption configures a NATS group member.
type NATSOption func(*NATS)

// WithLogger sets the logger of a NATS group member.
func WithLogger(logger types.Logger) NATSOption {
	return func(n *NATS) {
		n.logger = logger
	}
}

// WithRunID scopes the barrier keys of a member to one run of the group.
//
// Members of the same run must share the ID. Keys left behind by a member of
// another run that crashed mid-barrier are never counted.
func WithRunID(id string) NATSOption {
	return func(n *NATS) {
		n.runID = id
	}
}

// OpenBucket creates or opens the coordination bucket shared by the members
// of NATS groups and rank claimers.
//
// Parameters:
//   - ctx: Context for the bucket creation
//   - js: JetStream context
//   - bucket: Bucket name
//   - ttl: Expiry of every key; it must exceed the lifetime of a rank claim.
//     Zero disables expiry.
func OpenBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	return kvutil.OpenBucket(ctx, js, kvutil.BarrierConfig(bucket, ttl), 0)
}

// NewNATS creates the member with the given rank of a group.
//
// Parameters:
//   - kv: Coordination bucket shared by all members (see OpenBucket)
//   - name: Group name; a single KV key token of letters, digits, '-' and '_'
//   - rank: Rank of this member in [0, worldSize)
//   - worldSize: Number of members
//   - opts: Optional configuration (WithLogger, WithRunID)
//
// Returns:
//   - *NATS: Group member
//   - error: ErrInvalidConfig for a bad name, run ID or rank, ErrNoWorkers for worldSize < 1
func NewNATS(kv jetstream.KeyValue, name string, rank, worldSize int, opts ...NATSOption) (*NATS, error) {
	if worldSize < 1 {
		return nil, fmt.Errorf("%w: group size %d", types.ErrNoWorkers, worldSize)
	}
	if !tokenPattern.MatchString(name) {
		return nil, fmt.Errorf("%w: group name %q is not a KV key token", types.ErrInvalidConfig, name)
	}
	if rank < 0 || rank >= worldSize {
		return nil, fmt.Errorf("%w: rank %d outside group of %d", types.ErrInvalidConfig, rank, worldSize)
	}

	n := &NATS{kv: kv, name: name, rank: rank, size: worldSize}
	for _, opt := range opts {
		opt(n)
	}
	if n.runID != "" && !tokenPattern.MatchString(n.runID) {
		return nil, fmt.Errorf("%w: run ID %q is not a KV key token", types.ErrInvalidConfig, n.runID)
	}
	n.logger = logging.OrNop(n.logger)

	return n, nil
}

// Rank returns the rank of this member.
func (n *NATS) Rank() int { return n.rank }

// WorldSize returns the number of members.
func (n *NATS) WorldSize() int { return n.size }

// Barrier blocks until every member has reached the same barrier generation.
//
// Returns:
//   - error: ErrBarrierAborted (wrapped) when ctx ends first, or a KV error
func (n *NATS) Barrier(ctx context.Context) error {
	n.gen++
	prefix := n.prefix()

	watcher, err := n.kv.Watch(ctx, prefix+".*")
	if err != nil {
		return fmt.Errorf("watch barrier %s: %w", prefix, err)
	}
	defer func() { _ = watcher.Stop() }()

	own := prefix + "." + strconv.Itoa(n.rank)
	if _, err := n.kv.Put(ctx, own, []byte(time.Now().UTC().Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("arrive at barrier %s: %w", prefix, err)
	}
	// Every peer watched this generation before writing its key, and the
	// barrier passes only after all keys are seen, so a peer has received
	// this key before it is removed.
	defer n.leave(ctx, own)

	arrived := make(map[string]struct{}, n.size)
	for len(arrived) < n.size {
		select {
		case <-ctx.Done():
			n.logger.Warn("barrier abandoned", "barrier", prefix, "arrived", len(arrived), "world_size", n.size)
			return fmt.Errorf("%w: %w", types.ErrBarrierAborted, ctx.Err())
		case entry, ok := <-watcher.Updates():
			if !ok {
				return fmt.Errorf("%w: watcher closed at %s", types.ErrBarrierAborted, prefix)
			}
			if entry == nil || entry.Operation() != jetstream.KeyValuePut {
				continue
			}
			arrived[strings.TrimPrefix(entry.Key(), prefix+".")] = struct{}{}
		}
	}

	return nil
}

// prefix returns the key prefix of the current barrier generation.
func (n *NATS) prefix() string {
	gen := strconv.FormatUint(n.gen, 10)
	if n.runID == "" {
		return n.name + "." + gen
	}

	return n.name + "." + n.runID + "." + gen
}

// leave removes the member's own barrier key, even after ctx has ended.
func (n *NATS) leave(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := n.kv.Delete(ctx, key); err != nil {
		n.logger.Debug("failed to delete barrier key", "key", key, "error", err)
	}
}
