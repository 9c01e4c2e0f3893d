package services

import (
	"fmt"
	"iter"
	"strconv"

	"medical-rag-chatbot/models"

	"github.com/google/uuid"
)

// FixedWindowChunker splits text into overlapping windows of runes.
type FixedWindowChunker struct {
	size    int
	overlap int
}

// NewFixedWindowChunker requires size > 0 and 0 <= overlap < size.
func NewFixedWindowChunker(size, overlap int) (*FixedWindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &FixedWindowChunker{size: size, overlap: overlap}, nil
}

// Chunks yields windows [start, start+size) advancing by size-overlap. The
// last window is the first one that reaches the end of the text.
func (c *FixedWindowChunker) Chunks(doc models.Document) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		runes := []rune(doc.Text)
		n := len(runes)
		step := c.size - c.overlap

		for start, i := 0, 0; start < n; start, i = start+step, i+1 {
			end := min(start+c.size, n)
			chunk := models.Chunk{
				ID:         chunkID(doc.ID, start),
				DocumentID: doc.ID,
				Source:     doc.Path,
				Index:      i,
				Offset:     start,
				Page:       doc.PageAt(start),
				Text:       string(runes[start:end]),
			}
			if !yield(chunk) || end == n {
				return
			}
		}
	}
}

func chunkID(documentID string, offset int) string {
	return uuid.NewSHA1(documentNamespace, []byte(documentID+":"+strconv.Itoa(offset))).String()
}
