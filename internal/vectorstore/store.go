package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"medical-rag-chatbot/models"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index answers nearest-neighbor queries. Implementations are safe for
// concurrent readers.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	Len() int
}

// Writer replaces the whole persisted index in one call.
type Writer interface {
	Rebuild(ctx context.Context, meta models.IndexMeta, entries []models.IndexEntry) error
}

// CheckDimensions reports the first entry whose vector length is not dim.
func CheckDimensions(entries []models.IndexEntry, dim int) error {
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d (%s) has %d, want %d", ErrDimensionMismatch, i, e.Chunk.ID, len(e.Vector), dim)
		}
	}
	return nil
}
