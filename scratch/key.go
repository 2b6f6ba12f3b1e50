package scratch

import (
	"path"
	"strconv"
)

// DefaultRoot is the key prefix used when none is configured.
const DefaultRoot = "atoms"

// Key returns the scratch key of the view of atom index under root.
//
// Example:
//
//	scratch.Key("atoms", 3) // "atoms/loc_3"
func Key(root string, index int) string {
	if root == "" {
		root = DefaultRoot
	}

	return path.Join(root, "loc_"+strconv.Itoa(index))
}
