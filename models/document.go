package models

import (
	"sort"
	"time"
)

// Document formats produced by the extractors
const (
	FormatPDF   = "pdf"
	FormatExcel = "xlsx"
)

// Document is one source file and the raw text extracted from it.
// Pages are joined with PageSeparator; PageOffsets holds the rune offset
// where each page starts inside Text.
type Document struct {
	ID          string `json:"id" bson:"id"`
	Path        string `json:"path" bson:"path"`
	Format      string `json:"format" bson:"format"`
	Text        string `json:"text" bson:"text"`
	PageCount   int    `json:"page_count" bson:"page_count"`
	PageOffsets []int  `json:"page_offsets,omitempty" bson:"page_offsets,omitempty"`
}

// PageSeparator is inserted between page texts when a Document is assembled.
const PageSeparator = "\n\n"

// PageAt returns the 1-based page that contains the given rune offset,
// or 0 when the document has no page information.
func (d Document) PageAt(offset int) int {
	if len(d.PageOffsets) == 0 {
		return 0
	}
	i := sort.Search(len(d.PageOffsets), func(i int) bool {
		return d.PageOffsets[i] > offset
	})
	if i == 0 {
		return 1
	}
	return i
}

// Chunk is a window of a Document's text, the unit of retrieval.
type Chunk struct {
	ID         string `json:"chunk_id" bson:"chunk_id"`
	DocumentID string `json:"document_id" bson:"document_id"`
	Source     string `json:"source" bson:"source"`
	Index      int    `json:"index" bson:"order"`
	Offset     int    `json:"offset" bson:"offset"`
	Page       int    `json:"page,omitempty" bson:"page,omitempty"`
	Text       string `json:"text" bson:"text"`
}

// IndexEntry pairs a chunk with its embedding vector.
type IndexEntry struct {
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"-"`
}

// IndexMeta describes a persisted vector index.
type IndexMeta struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Entries        int       `json:"entries"`
	BuiltAt        time.Time `json:"built_at"`
}

// SearchResult is a chunk returned by the vector index with its cosine score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
