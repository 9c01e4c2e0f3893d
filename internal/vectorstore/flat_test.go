package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"medical-rag-chatbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, vec ...float32) models.IndexEntry {
	return models.IndexEntry{
		Chunk:  models.Chunk{ID: id, Source: id + ".pdf", Text: "text of " + id},
		Vector: vec,
	}
}

func TestFlatIndex_SelfRetrieval(t *testing.T) {
	entries := []models.IndexEntry{
		entry("a", 1, 0, 0),
		entry("b", 0, 1, 0),
		entry("c", 0.7, 0.7, 0),
		entry("d", 0, 0.2, 0.9),
	}
	idx, err := NewFlatIndex(entries)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	for _, e := range entries {
		t.Run(e.Chunk.ID, func(t *testing.T) {
			results, err := idx.Search(context.Background(), e.Vector, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, e.Chunk.ID, results[0].Chunk.ID)
			assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		})
	}
}

func TestFlatIndex_OrderAndTies(t *testing.T) {
	idx, err := NewFlatIndex([]models.IndexEntry{
		entry("first", 1, 0),
		entry("second", 2, 0),
		entry("orthogonal", 0, 1),
		entry("third", 3, 0),
	})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.Chunk.ID)
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestFlatIndex_Empty(t *testing.T) {
	idx, err := NewFlatIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	results, err := idx.Search(context.Background(), []float32{1, 2, 3}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlatIndex_KLargerThanIndex(t *testing.T) {
	idx, err := NewFlatIndex([]models.IndexEntry{entry("a", 1, 0), entry("b", 0, 1)})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	_, err := NewFlatIndex([]models.IndexEntry{entry("a", 1, 0), entry("b", 1, 0, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	idx, err := NewFlatIndex([]models.IndexEntry{entry("a", 1, 0)})
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_ZeroVector(t *testing.T) {
	idx, err := NewFlatIndex([]models.IndexEntry{entry("zero", 0, 0), entry("x", 1, 0)})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "x", results[0].Chunk.ID)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestFlatIndex_ConcurrentReaders(t *testing.T) {
	var entries []models.IndexEntry
	for i := 0; i < 50; i++ {
		entries = append(entries, entry(fmt.Sprint(i), float32(i), 1, float32(50-i)))
	}
	idx, err := NewFlatIndex(entries)
	require.NoError(t, err)

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 20; i++ {
				_, _ = idx.Search(context.Background(), []float32{1, 1, 1}, 3)
			}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
