// Package gallery holds the enrolled set of identities available for
// face matching. A gallery is built once at startup from the roster
// directory and is read-only afterwards, so it is safe for concurrent
// reads from multiple query paths.
package gallery

import (
	"fmt"
)

// Identity is one enrolled person: a unique key, a display name and a
// single reference embedding. Identities are never mutated after load.
type Identity struct {
	Key       string    // normalized identity key, e.g. "chetan_yadav"
	Name      string    // display name, e.g. "Chetan Yadav"
	Embedding []float32 // reference embedding of dimension Dim()
	Source    string    // reference image the embedding was computed from
}

// Gallery is an ordered, immutable collection of identities.
// Order matters: the matcher breaks distance ties by lowest index.
type Gallery struct {
	identities []Identity
	byKey      map[string]int
	dim        int
}

// New builds a gallery from identities in the given order.
// Keys must be unique and every embedding must have dimension dim.
func New(identities []Identity, dim int) (*Gallery, error) {
	byKey := make(map[string]int, len(identities))
	for i, id := range identities {
		if id.Key == "" {
			return nil, fmt.Errorf("identity at index %d has empty key", i)
		}
		if _, exists := byKey[id.Key]; exists {
			return nil, fmt.Errorf("duplicate identity key %q", id.Key)
		}
		if len(id.Embedding) != dim {
			return nil, fmt.Errorf("identity %q: embedding dimension %d, want %d", id.Key, len(id.Embedding), dim)
		}
		byKey[id.Key] = i
	}

	return &Gallery{
		identities: identities,
		byKey:      byKey,
		dim:        dim,
	}, nil
}

// Size returns the number of enrolled identities.
func (g *Gallery) Size() int {
	return len(g.identities)
}

// Dim returns the embedding dimension.
func (g *Gallery) Dim() int {
	return g.dim
}

// At returns the identity at the given index.
func (g *Gallery) At(i int) Identity {
	return g.identities[i]
}

// Lookup returns the identity for a key, if enrolled.
func (g *Gallery) Lookup(key string) (Identity, bool) {
	i, ok := g.byKey[key]
	if !ok {
		return Identity{}, false
	}
	return g.identities[i], true
}

// Identities returns all enrolled identities in gallery order.
// The returned slice must not be modified.
func (g *Gallery) Identities() []Identity {
	return g.identities
}
