package group

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/atomenv/types"
)

// Local is an in-process group of goroutine ranks sharing a reusable barrier.
type Local struct {
	size int

	mu      sync.Mutex
	arrived int
	release chan struct{} // closed when the current generation completes
	broken  chan struct{} // closed when a member abandons a barrier
	aborted bool
}

// NewLocal creates a group of size ranks.
//
// Returns:
//   - *Local: The group
//   - error: ErrNoWorkers when size < 1
func NewLocal(size int) (*Local, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: group size %d", types.ErrNoWorkers, size)
	}

	return &Local{
		size:    size,
		release: make(chan struct{}),
		broken:  make(chan struct{}),
	}, nil
}

// Size returns the number of ranks.
func (l *Local) Size() int { return l.size }

// Member returns the ProcessGroup handle of one rank.
//
// It panics when rank is outside [0, Size()).
func (l *Local) Member(rank int) types.ProcessGroup {
	if rank < 0 || rank >= l.size {
		panic(fmt.Sprintf("group: rank %d outside group of %d", rank, l.size))
	}

	return &localMember{group: l, rank: rank}
}

// Run starts fn once per rank, each in its own goroutine, and waits for all.
//
// The context passed to fn is cancelled as soon as one rank fails, which
// aborts any barrier the other ranks are blocked in.
//
// Returns:
//   - error: The first rank error
//
// Example:
//
//	g, _ := group.NewLocal(4)
//	err := g.Run(ctx, func(ctx context.Context, pg types.ProcessGroup) error {
//	    return cfg.Gather(ctx)
//	})
func (l *Local) Run(ctx context.Context, fn func(ctx context.Context, pg types.ProcessGroup) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for rank := range l.size {
		member := l.Member(rank)
		eg.Go(func() error {
			if err := fn(egCtx, member); err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}

			return nil
		})
	}

	return eg.Wait()
}

func (l *Local) barrier(ctx context.Context) error {
	l.mu.Lock()
	if l.aborted {
		l.mu.Unlock()
		return fmt.Errorf("%w: group was aborted earlier", types.ErrBarrierAborted)
	}

	release := l.release
	l.arrived++
	if l.arrived == l.size {
		l.arrived = 0
		l.release = make(chan struct{})
		close(release)
		l.mu.Unlock()

		return nil
	}
	l.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-l.broken:
		if isClosed(release) {
			return nil
		}
		return fmt.Errorf("%w: another member left the barrier", types.ErrBarrierAborted)
	case <-ctx.Done():
		if !l.abandon(release) {
			return nil
		}
		return fmt.Errorf("%w: %w", types.ErrBarrierAborted, ctx.Err())
	}
}

// abandon breaks the group unless the generation behind release has already
// completed. It reports whether the group was broken.
func (l *Local) abandon(release chan struct{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if isClosed(release) {
		return false
	}
	if !l.aborted {
		l.aborted = true
		close(l.broken)
	}

	return true
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

type localMember struct {
	group *Local
	rank  int
}

func (m *localMember) Rank() int { return m.rank }

func (m *localMember) WorldSize() int { return m.group.size }

func (m *localMember) Barrier(ctx context.Context) error {
	return m.group.barrier(ctx)
}
