// Package atomenv manages the per-atom local environments of atomic
// configurations for process-parallel workloads.
//
// A Configuration holds the geometry of one atomic structure (species,
// positions, cell and periodic flags), builds its neighbor list through an
// injected NeighborSearcher and keeps one pairwise View per owned atom. Every
// View lists the candidate neighbors of its reference atom together with their
// species, displacement vectors and periodic image offsets.
//
// # Quick Start
//
//	import (
//	    "github.com/arloliu/atomenv"
//	    "github.com/arloliu/atomenv/neighbor"
//	)
//
//	cfg := atomenv.DefaultConfig()
//	cfg.Cutoff = 6.0
//
//	c, err := atomenv.New(species, positions, cell, pbc, cfg,
//	    atomenv.WithNeighborSearcher(neighbor.NewBruteForce()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, v := range c.Views() {
//	    v.Select(1, 8, true)
//	    use(v.Displacements())
//	}
//
// # Updates
//
// Update compares the live geometry with the last snapshot and only rebuilds
// what changed:
//
//	cutoff given, or species/count changed  -> new neighbor list, repartition
//	feature-generator set changed           -> forced refresh
//	forced, or any geometry changed         -> search, rebuild views, re-snapshot
//	only generator state tokens changed     -> restage those generators in place
//	otherwise                               -> no-op
//
// # Distributed Use
//
// With a ProcessGroup attached every rank owns a subset of the atoms and only
// builds their views. Ownership comes from explicit per-atom ranks (see
// strategy.Balancer) or from a contiguous range split over the world size.
// Gather serializes the owned views into a shared ScratchStore, waits on the
// group barrier and reads back every view in index order. A second barrier
// holds the scratch keys until every rank has read them:
//
//	grp, _ := group.NewLocal(2)
//	store := scratch.NewMemory()
//	err := grp.Run(ctx, func(ctx context.Context, pg atomenv.ProcessGroup) error {
//	    c, err := atomenv.New(species, positions, cell, pbc, cfg,
//	        atomenv.WithGroup(pg),
//	        atomenv.WithScratch(store),
//	    )
//	    if err != nil {
//	        return err
//	    }
//	    return c.GatherInPlace(ctx)
//	})
//
// Every rank must take part in every Gather. A rank that skips the call blocks
// the others until their context ends.
package atomenv
