// Package match finds the nearest enrolled identity for a query face
// embedding. The default implementation is a brute-force scan; an
// HNSW-backed matcher exists behind the same interface for rosters
// too large to scan per frame.
package match

import (
	"errors"
	"fmt"

	"github.com/facemark/facemark/internal/gallery"
)

// ErrEmptyGallery is returned when matching against a gallery with no
// enrolled identities. Callers must treat it as an automatic reject.
var ErrEmptyGallery = errors.New("gallery is empty")

// ErrDimensionMismatch is returned for query embeddings whose
// dimension does not match the gallery's.
var ErrDimensionMismatch = errors.New("query embedding dimension mismatch")

// Result is the nearest enrolled identity for one query embedding.
type Result struct {
	Key      string  // identity key of the nearest enrolled embedding
	Name     string  // display name
	Distance float64 // Euclidean distance, >= 0
	Index    int     // gallery index of the match
}

// Matcher finds the nearest identity for a query embedding.
type Matcher interface {
	Match(query []float32) (Result, error)
}

// BruteForce scans every enrolled embedding. O(N*D) per query, which
// is fine for rosters of tens of identities. Ties are broken by the
// lowest gallery index.
type BruteForce struct {
	gallery *gallery.Gallery
}

// NewBruteForce creates a brute-force matcher over the gallery.
func NewBruteForce(g *gallery.Gallery) *BruteForce {
	return &BruteForce{gallery: g}
}

// Match returns the identity with the minimum Euclidean distance to
// the query.
func (m *BruteForce) Match(query []float32) (Result, error) {
	if m.gallery.Size() == 0 {
		return Result{}, ErrEmptyGallery
	}
	if len(query) != m.gallery.Dim() {
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), m.gallery.Dim())
	}

	best := Result{Index: -1}
	for i := range m.gallery.Size() {
		id := m.gallery.At(i)
		d := Euclidean(query, id.Embedding)
		// Strict less-than keeps the lowest index on exact ties.
		if best.Index == -1 || d < best.Distance {
			best = Result{Key: id.Key, Name: id.Name, Distance: d, Index: i}
		}
	}

	return best, nil
}
