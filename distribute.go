package atomenv

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/arloliu/atomenv/scratch"
)

// IsDistributed reports whether a process group is attached.
func (c *Configuration) IsDistributed() bool { return c.group != nil }

// Group returns the attached process group, or nil.
func (c *Configuration) Group() ProcessGroup { return c.group }

// AttachGroup attaches a process group and repartitions the atoms.
//
// Held views are kept as they are; use DistributeInPlace to narrow them.
func (c *Configuration) AttachGroup(group ProcessGroup) error {
	c.group = group

	return c.Partition(true)
}

// DetachGroup detaches the process group; every atom is owned afterwards.
//
// Held views are kept as they are; use GatherInPlace to collect them first.
func (c *Configuration) DetachGroup() {
	c.group = nil
	_ = c.Partition(false)
}

// SetScratch replaces the scratch store used by Gather.
func (c *Configuration) SetScratch(store ScratchStore) { c.store = store }

// Gather returns the views of every atom in index order.
//
// A configuration without a process group, or in a group of one, returns its
// held views unchanged. Otherwise every rank writes its owned views to the
// scratch store, waits on the group barrier and reads back the views of all
// atoms. A second barrier after the reads keeps the scratch keys stable until
// every rank has read them, so consecutive gathers may reuse the same keys. A
// rank that already holds every view skips the read and returns its own views,
// but still writes and joins both barriers so that its peers can complete.
//
// Every rank of the group must call Gather for the same configuration; a rank
// that skips the call blocks the others until their context ends.
//
// Parameters:
//   - ctx: Context bounding the whole gather; Config.Scratch.OperationTimeout
//     additionally bounds each scratch operation
//
// Returns:
//   - []*View: One view per atom, in index order
//   - error: ErrScratchRequired, ErrPartitionInconsistent, ErrBarrierAborted,
//     ErrScratchEntryMissing, ErrChecksumMismatch, or a store error
func (c *Configuration) Gather(ctx context.Context) ([]*View, error) {
	start := time.Now()
	n := len(c.species)

	if c.group == nil || c.group.WorldSize() <= 1 {
		c.metrics.RecordGather(len(c.views), time.Since(start).Seconds(), false)

		return slices.Clone(c.views), nil
	}

	if c.store == nil {
		return nil, ErrScratchRequired
	}
	if err := c.checkOwnership(); err != nil {
		return nil, err
	}

	store := scratch.Instrument(c.store, c.metrics, c.cfg.Scratch.OperationTimeout)
	root := c.cfg.Scratch.Root

	for _, v := range c.views {
		data, err := v.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode view of atom %d: %w", v.Index(), err)
		}
		if err := store.Put(ctx, scratch.Key(root, v.Index()), data); err != nil {
			return nil, fmt.Errorf("store view of atom %d: %w", v.Index(), err)
		}
	}

	if err := c.barrier(ctx, "gather"); err != nil {
		return nil, err
	}

	views := slices.Clone(c.views)
	if len(c.views) != n {
		loaded, err := c.loadViews(ctx, store, n)
		if err != nil {
			return nil, err
		}
		views = loaded
	}

	if err := c.barrier(ctx, "gather release"); err != nil {
		return nil, err
	}

	c.metrics.RecordGather(n, time.Since(start).Seconds(), true)
	c.logger.Debug("views gathered",
		"rank", c.group.Rank(),
		"owned", len(c.views),
		"atoms", n,
	)

	return views, nil
}

// barrier waits on the group barrier and records the wait.
func (c *Configuration) barrier(ctx context.Context, stage string) error {
	wait := time.Now()
	if err := c.group.Barrier(ctx); err != nil {
		return fmt.Errorf("%s barrier on rank %d: %w", stage, c.group.Rank(), err)
	}
	c.metrics.RecordBarrierWait(time.Since(wait).Seconds())

	return nil
}

// loadViews reads the views of atoms 0..n-1 from the scratch store.
func (c *Configuration) loadViews(ctx context.Context, store ScratchStore, n int) ([]*View, error) {
	root := c.cfg.Scratch.Root
	views := make([]*View, n)
	for i := range views {
		data, err := store.Get(ctx, scratch.Key(root, i))
		if err != nil {
			return nil, fmt.Errorf("load view of atom %d: %w", i, err)
		}

		v := new(View)
		if err := v.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("decode view of atom %d: %w", i, err)
		}
		if v.Index() != i {
			return nil, fmt.Errorf("%w: scratch entry of atom %d holds atom %d", ErrPartitionInconsistent, i, v.Index())
		}
		views[i] = v
	}

	return views, nil
}

// GatherInPlace gathers the views of every atom, keeps them and detaches the
// process group.
func (c *Configuration) GatherInPlace(ctx context.Context) error {
	views, err := c.Gather(ctx)
	if err != nil {
		return err
	}

	c.views = views
	c.DetachGroup()

	return nil
}

// DistributeInPlace attaches a process group, repartitions the atoms and keeps
// only the views of the atoms owned by the local rank.
//
// Returns ErrPartitionInconsistent when the view of an owned atom is not held.
func (c *Configuration) DistributeInPlace(group ProcessGroup) error {
	if err := c.AttachGroup(group); err != nil {
		return err
	}
	if c.views == nil {
		return nil
	}

	byIndex := make(map[int]*View, len(c.views))
	for _, v := range c.views {
		byIndex[v.Index()] = v
	}

	views := make([]*View, 0, len(c.indices))
	for _, i := range c.indices {
		v, ok := byIndex[i]
		if !ok {
			return fmt.Errorf("%w: view of owned atom %d is not held", ErrPartitionInconsistent, i)
		}
		views = append(views, v)
	}
	c.views = views

	return nil
}

// checkOwnership verifies that the held views are exactly those of the owned atoms.
func (c *Configuration) checkOwnership() error {
	if len(c.views) != len(c.indices) {
		return fmt.Errorf("%w: %d views held for %d owned atoms, refresh with Update(UpdateOptions{Force: true})",
			ErrPartitionInconsistent, len(c.views), len(c.indices))
	}
	for k, v := range c.views {
		if v.Index() != c.indices[k] {
			return fmt.Errorf("%w: view %d is of atom %d, expected atom %d",
				ErrPartitionInconsistent, k, v.Index(), c.indices[k])
		}
	}

	return nil
}
