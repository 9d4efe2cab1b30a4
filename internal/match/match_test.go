package match

import (
	"errors"
	"math"
	"testing"

	"github.com/facemark/facemark/internal/gallery"
)

func TestEuclidean(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
		delta    float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 0.0, 0.0001},
		{"unit apart", []float32{0, 0, 0}, []float32{1, 0, 0}, 1.0, 0.0001},
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5.0, 0.0001},
		{"negative components", []float32{-1, -1}, []float32{1, 1}, 2.8284, 0.001},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Euclidean(tc.a, tc.b)
			if result < tc.expected-tc.delta || result > tc.expected+tc.delta {
				t.Errorf("Euclidean(%v, %v) = %f; want %f", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}

func TestEuclideanInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
	}{
		{"different lengths", []float32{1, 2}, []float32{1, 2, 3}},
		{"both empty", []float32{}, []float32{}},
		{"one empty", []float32{1}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if result := Euclidean(tc.a, tc.b); !math.IsInf(result, 1) {
				t.Errorf("Euclidean(%v, %v) = %f; want +Inf", tc.a, tc.b, result)
			}
		})
	}
}

func testGallery(t *testing.T, embeddings ...[]float32) *gallery.Gallery {
	t.Helper()
	identities := make([]gallery.Identity, len(embeddings))
	for i, e := range embeddings {
		identities[i] = gallery.Identity{
			Key:       []string{"alice", "bob", "carol", "dave"}[i],
			Name:      []string{"Alice", "Bob", "Carol", "Dave"}[i],
			Embedding: e,
		}
	}
	g, err := gallery.New(identities, 3)
	if err != nil {
		t.Fatalf("building gallery: %v", err)
	}
	return g
}

func TestBruteForceNearest(t *testing.T) {
	g := testGallery(t,
		[]float32{0, 0, 0},
		[]float32{10, 0, 0},
		[]float32{0, 10, 0},
	)
	m := NewBruteForce(g)

	result, err := m.Match([]float32{9, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.Key != "bob" {
		t.Errorf("expected bob, got %s", result.Key)
	}
	if result.Index != 1 {
		t.Errorf("expected index 1, got %d", result.Index)
	}
	if result.Distance < 0.999 || result.Distance > 1.001 {
		t.Errorf("expected distance 1, got %f", result.Distance)
	}
}

func TestBruteForceTieBreaksLowestIndex(t *testing.T) {
	// Two enrolled embeddings equidistant from the query: the lower
	// gallery index must always win.
	g := testGallery(t,
		[]float32{1, 0, 0},
		[]float32{-1, 0, 0},
	)
	m := NewBruteForce(g)

	for range 10 {
		result, err := m.Match([]float32{0, 0, 0})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if result.Index != 0 || result.Key != "alice" {
			t.Fatalf("tie should pick index 0 (alice), got index %d (%s)", result.Index, result.Key)
		}
	}
}

func TestBruteForceExactDuplicateEmbedding(t *testing.T) {
	g := testGallery(t,
		[]float32{5, 5, 5},
		[]float32{1, 2, 3},
	)
	m := NewBruteForce(g)

	result, err := m.Match([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Key != "bob" || result.Distance != 0 {
		t.Errorf("expected bob at distance 0, got %s at %f", result.Key, result.Distance)
	}
}

func TestBruteForceEmptyGallery(t *testing.T) {
	g, err := gallery.New(nil, 3)
	if err != nil {
		t.Fatalf("building gallery: %v", err)
	}
	m := NewBruteForce(g)

	_, err = m.Match([]float32{1, 2, 3})
	if !errors.Is(err, ErrEmptyGallery) {
		t.Errorf("expected ErrEmptyGallery, got %v", err)
	}
}

func TestBruteForceDimensionMismatch(t *testing.T) {
	g := testGallery(t, []float32{1, 0, 0})
	m := NewBruteForce(g)

	_, err := m.Match([]float32{1, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestHNSWMatchesBruteForce(t *testing.T) {
	g := testGallery(t,
		[]float32{0, 0, 0},
		[]float32{10, 0, 0},
		[]float32{0, 10, 0},
		[]float32{0, 0, 10},
	)

	bf := NewBruteForce(g)
	h, err := NewHNSW(g)
	if err != nil {
		t.Fatalf("building HNSW matcher: %v", err)
	}

	queries := [][]float32{
		{0.1, 0.1, 0.1},
		{9, 1, 0},
		{0, 8, 2},
		{1, 1, 9},
	}

	for _, q := range queries {
		want, err := bf.Match(q)
		if err != nil {
			t.Fatalf("brute force failed: %v", err)
		}
		got, err := h.Match(q)
		if err != nil {
			t.Fatalf("hnsw failed: %v", err)
		}
		if got.Key != want.Key {
			t.Errorf("query %v: hnsw found %s, brute force found %s", q, got.Key, want.Key)
		}
	}
}

func TestHNSWDimensionMismatch(t *testing.T) {
	g := testGallery(t, []float32{1, 0, 0})
	h, err := NewHNSW(g)
	if err != nil {
		t.Fatalf("building HNSW matcher: %v", err)
	}

	if _, err := h.Match([]float32{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
