package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"medical-rag-chatbot/models"
)

// FlatIndex is an exact in-memory cosine index. It is never mutated after
// construction.
type FlatIndex struct {
	entries []models.IndexEntry
	norms   []float64
	dim     int
}

// NewFlatIndex copies entries into a new index. All vectors must share one
// dimension.
func NewFlatIndex(entries []models.IndexEntry) (*FlatIndex, error) {
	idx := &FlatIndex{
		entries: make([]models.IndexEntry, len(entries)),
		norms:   make([]float64, len(entries)),
	}
	if len(entries) > 0 {
		idx.dim = len(entries[0].Vector)
		if err := CheckDimensions(entries, idx.dim); err != nil {
			return nil, err
		}
	}
	copy(idx.entries, entries)
	for i, e := range idx.entries {
		idx.norms[i] = norm(e.Vector)
	}
	return idx, nil
}

func (f *FlatIndex) Len() int { return len(f.entries) }

// Dimension returns the vector length, 0 for an empty index.
func (f *FlatIndex) Dimension() int { return f.dim }

// Search returns the k entries most similar to vector, best first. Equal
// scores keep insertion order.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if len(f.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), f.dim)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qnorm := norm(vector)
	results := make([]models.SearchResult, len(f.entries))
	for i, e := range f.entries {
		results[i] = models.SearchResult{
			Chunk: e.Chunk,
			Score: cosine(vector, e.Vector, qnorm, f.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
