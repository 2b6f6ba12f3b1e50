package scratch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/atomenv/internal/kvutil"
	"github.com/arloliu/atomenv/types"
)

// NATS is a ScratchStore backed by a JetStream key-value bucket.
type NATS struct {
	kv jetstream.KeyValue
}

var _ types.ScratchStore = (*NATS)(nil)

// NewNATS wraps an existing bucket.
func NewNATS(kv jetstream.KeyValue) *NATS {
	return &NATS{kv: kv}
}

// OpenNATS creates or opens the scratch bucket shared by a group.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream handle
//   - bucket: Bucket name, identical on every rank
//   - ttl: Entry lifetime; must exceed the longest gather, zero keeps entries forever
//
// Returns:
//   - *NATS: Store on the bucket
//   - error: Bucket creation error
func OpenNATS(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*NATS, error) {
	kv, err := kvutil.OpenBucket(ctx, js, kvutil.ScratchConfig(bucket, ttl), 0)
	if err != nil {
		return nil, err
	}

	return &NATS{kv: kv}, nil
}

// Put stores data under key.
func (n *NATS) Put(ctx context.Context, key string, data []byte) error {
	if _, err := n.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put scratch entry %s: %w", key, err)
	}

	return nil
}

// Get returns the data stored under key.
func (n *NATS) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, fmt.Errorf("%w: %s", types.ErrScratchEntryMissing, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get scratch entry %s: %w", key, err)
	}

	return entry.Value(), nil
}

// Delete removes key.
func (n *NATS) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete scratch entry %s: %w", key, err)
	}

	return nil
}
