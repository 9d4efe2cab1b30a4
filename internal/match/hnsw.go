package match

import (
	"fmt"

	"github.com/coder/hnsw"

	"github.com/facemark/facemark/internal/gallery"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// HNSW is an approximate matcher backed by an HNSW graph, for rosters
// too large for a per-frame brute-force scan. Unlike BruteForce it
// does not guarantee lowest-index tie breaking on exact ties.
type HNSW struct {
	gallery *gallery.Gallery
	graph   *hnsw.Graph[int]
}

// NewHNSW builds an HNSW matcher from the gallery. The graph is keyed
// by gallery index so results map back to identities.
func NewHNSW(g *gallery.Gallery) (*HNSW, error) {
	graph := hnsw.NewGraph[int]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	graph.Distance = hnsw.EuclideanDistance

	for i := range g.Size() {
		id := g.At(i)
		if len(id.Embedding) != g.Dim() {
			return nil, fmt.Errorf("identity %q: embedding dimension %d, want %d", id.Key, len(id.Embedding), g.Dim())
		}
		graph.Add(hnsw.MakeNode(i, id.Embedding))
	}

	return &HNSW{gallery: g, graph: graph}, nil
}

// Match returns the (approximately) nearest identity for the query.
func (m *HNSW) Match(query []float32) (Result, error) {
	if m.gallery.Size() == 0 {
		return Result{}, ErrEmptyGallery
	}
	if len(query) != m.gallery.Dim() {
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), m.gallery.Dim())
	}

	neighbors := m.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return Result{}, ErrEmptyGallery
	}

	idx := neighbors[0].Key
	id := m.gallery.At(idx)
	return Result{
		Key:      id.Key,
		Name:     id.Name,
		Distance: Euclidean(query, id.Embedding),
		Index:    idx,
	}, nil
}
