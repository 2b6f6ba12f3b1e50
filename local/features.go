package local

import (
	"fmt"
	"maps"
	"slices"
)

// FeatureGenerator precomputes derived per-view features.
//
// Implementations are external to this package. Name identifies the generator
// within a configuration; State is an opaque token that changes whenever the
// generator's output for an unchanged geometry would change.
type FeatureGenerator interface {
	// Name returns the unique generator name.
	Name() string

	// State returns the generator's current state token.
	State() string

	// Precompute derives features for v, typically storing them with SetFeature.
	Precompute(v *View) error
}

// SetFeature stores a named feature vector on the view, replacing any previous value.
func (v *View) SetFeature(name string, values []float64) {
	if v.features == nil {
		v.features = make(map[string][]float64)
	}
	v.features[name] = slices.Clone(values)
}

// Feature returns a named feature vector and whether it is present.
func (v *View) Feature(name string) ([]float64, bool) {
	f, ok := v.features[name]
	if !ok {
		return nil, false
	}

	return slices.Clone(f), true
}

// FeatureNames returns the names of all stored features in sorted order.
func (v *View) FeatureNames() []string {
	return slices.Sorted(maps.Keys(v.features))
}

// ClearFeatures drops every stored feature.
func (v *View) ClearFeatures() {
	v.features = nil
}

// Stage runs every generator's Precompute on the view in order.
//
// Returns:
//   - error: First generator error, wrapped with the generator name and atom index
func (v *View) Stage(generators []FeatureGenerator) error {
	for _, g := range generators {
		if err := g.Precompute(v); err != nil {
			return fmt.Errorf("stage %q on atom %d: %w", g.Name(), v.index, err)
		}
	}

	return nil
}
