package local

import (
	"slices"

	"github.com/arloliu/atomenv/types"
)

// Collection is an ordered set of views that are no longer tied to a
// configuration, typically produced by detaching views for training.
type Collection struct {
	views []*View
}

// NewCollection creates a collection holding views as given.
func NewCollection(views ...*View) *Collection {
	return &Collection{views: slices.Clone(views)}
}

// Len returns the number of views.
func (c *Collection) Len() int { return len(c.views) }

// At returns the k-th view.
func (c *Collection) At(k int) *View { return c.views[k] }

// Views returns the held views in order.
func (c *Collection) Views() []*View { return slices.Clone(c.views) }

// Append adds views to the collection.
//
// With detach each view is stored as v.Detach(false), so the collection never
// shares state with the configuration the views came from.
func (c *Collection) Append(views []*View, detach bool) {
	for _, v := range views {
		if detach {
			v = v.Detach(false)
		}
		c.views = append(c.views, v)
	}
}

// Stage runs the generators on every view.
func (c *Collection) Stage(generators []FeatureGenerator) error {
	for _, v := range c.views {
		if err := v.Stage(generators); err != nil {
			return err
		}
	}

	return nil
}

// Subset returns a collection with the views whose reference atom has one of
// the given species. The views themselves are shared.
func (c *Collection) Subset(species ...types.Species) *Collection {
	out := &Collection{}
	for _, v := range c.views {
		if slices.Contains(species, v.species) {
			out.views = append(out.views, v)
		}
	}

	return out
}

// Samples converts every view into a single-environment sample.
func (c *Collection) Samples() []Sample {
	out := make([]Sample, len(c.views))
	for k, v := range c.views {
		out[k] = v.AsSample()
	}

	return out
}
