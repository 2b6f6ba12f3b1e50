// Package kvutil opens the JetStream key-value buckets shared by the ranks of a group.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	defaultAttempts = 3
	baseBackoff     = 10 * time.Millisecond
)

// OpenBucket creates the bucket described by cfg, or opens it when another
// rank created it first.
//
// All ranks of a group call OpenBucket concurrently on startup, so losing the
// creation race is the normal case and is retried with exponential backoff.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream handle
//   - cfg: Bucket configuration; only the first creator's settings take effect
//   - attempts: Maximum number of attempts (defaults to 3 when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The bucket
//   - error: Last error after all attempts, or the context error
//
// Example:
//
//	kv, err := kvutil.OpenBucket(ctx, js, kvutil.ScratchConfig("atoms", time.Hour), 5)
func OpenBucket(
	ctx context.Context,
	js jetstream.JetStream,
	cfg jetstream.KeyValueConfig,
	attempts int,
) (jetstream.KeyValue, error) {
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var lastErr error
	for attempt := range attempts {
		kv, err := js.CreateKeyValue(ctx, cfg)
		switch {
		case err == nil:
			return kv, nil
		case errors.Is(err, jetstream.ErrBucketExists):
			kv, err = js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("open existing bucket: %w", err)
		default:
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context done while opening KV bucket %s: %w", cfg.Bucket, ctx.Err())
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(baseBackoff << attempt)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("context done while opening KV bucket %s: %w", cfg.Bucket, ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("open KV bucket %s after %d attempts: %w", cfg.Bucket, attempts, lastErr)
}

// ScratchConfig returns the bucket configuration for a gather scratch area.
//
// Entries expire after ttl so a crashed group does not leave views behind;
// ttl must exceed the longest expected gather. Zero disables expiry.
func ScratchConfig(bucket string, ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "atomenv gather scratch area",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.FileStorage,
	}
}

// BarrierConfig returns the bucket configuration for group barriers and rank claims.
//
// ttl expires keys left behind by members that crashed. Zero disables expiry.
func BarrierConfig(bucket string, ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "atomenv process group coordination",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.MemoryStorage,
	}
}
