package scratch

import (
	"context"
	"time"

	"github.com/arloliu/atomenv/internal/metrics"
	"github.com/arloliu/atomenv/types"
)

// Instrumented wraps a ScratchStore and reports every operation to a
// MetricsCollector. An optional per-operation timeout bounds each call.
type Instrumented struct {
	store   types.ScratchStore
	metrics types.MetricsCollector
	timeout time.Duration
}

var _ types.ScratchStore = (*Instrumented)(nil)

// Instrument wraps store. A zero timeout leaves the caller's context untouched.
// A nil collector discards the measurements.
func Instrument(store types.ScratchStore, m types.MetricsCollector, timeout time.Duration) *Instrumented {
	return &Instrumented{store: store, metrics: metrics.OrNop(m), timeout: timeout}
}

// Put stores data under key.
func (s *Instrumented) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.store.Put(ctx, key, data)
	s.metrics.RecordScratchOperation("put", time.Since(start).Seconds(), err == nil)

	return err
}

// Get returns the data stored under key.
func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	data, err := s.store.Get(ctx, key)
	s.metrics.RecordScratchOperation("get", time.Since(start).Seconds(), err == nil)

	return data, err
}

// Delete removes key.
func (s *Instrumented) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.store.Delete(ctx, key)
	s.metrics.RecordScratchOperation("delete", time.Since(start).Seconds(), err == nil)

	return err
}

func (s *Instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.timeout)
}
