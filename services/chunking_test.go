package services

import (
	"slices"
	"strings"
	"testing"

	"medical-rag-chatbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(c *FixedWindowChunker, doc models.Document) []models.Chunk {
	return slices.Collect(c.Chunks(doc))
}

func TestNewFixedWindowChunker_Validation(t *testing.T) {
	_, err := NewFixedWindowChunker(0, 0)
	assert.Error(t, err)
	_, err = NewFixedWindowChunker(10, 10)
	assert.Error(t, err)
	_, err = NewFixedWindowChunker(10, -1)
	assert.Error(t, err)
	_, err = NewFixedWindowChunker(10, 9)
	assert.NoError(t, err)
}

func TestChunks_Windows(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "empty", text: "", size: 4, overlap: 1, want: nil},
		{name: "shorter than window", text: "abc", size: 4, overlap: 1, want: []string{"abc"}},
		{name: "exact window", text: "abcd", size: 4, overlap: 1, want: []string{"abcd"}},
		{name: "overlapping", text: "abcdefghij", size: 4, overlap: 1, want: []string{"abcd", "defg", "ghij"}},
		{name: "short tail", text: "abcdefgh", size: 4, overlap: 1, want: []string{"abcd", "defg", "gh"}},
		{name: "no overlap", text: "abcdefgh", size: 4, overlap: 0, want: []string{"abcd", "efgh"}},
		{name: "multibyte runes", text: "héllo wörld", size: 5, overlap: 2, want: []string{"héllo", "lo wö", "wörld"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFixedWindowChunker(tt.size, tt.overlap)
			require.NoError(t, err)

			var got []string
			for _, chunk := range collect(c, models.Document{ID: "doc", Path: "a.pdf", Text: tt.text}) {
				got = append(got, chunk.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunks_CoverageAndOverlap(t *testing.T) {
	text := strings.Repeat("Metformin is a first-line medication for type 2 diabetes. ", 40)
	doc := models.Document{ID: "doc-1", Path: "data/metformin.pdf", Text: text}

	c, err := NewFixedWindowChunker(500, 50)
	require.NoError(t, err)
	chunks := collect(c, doc)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, i*450, chunk.Offset)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, "data/metformin.pdf", chunk.Source)
		assert.Equal(t, string(runes[chunk.Offset:chunk.Offset+len([]rune(chunk.Text))]), chunk.Text)

		if i > 0 {
			prev := []rune(chunks[i-1].Text)
			cur := []rune(chunk.Text)
			assert.Equal(t, string(prev[len(prev)-50:]), string(cur[:50]), "adjacent chunks overlap by 50 runes")
		}
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(runes), last.Offset+len([]rune(last.Text)), "last chunk reaches the end")
}

func TestChunks_Deterministic(t *testing.T) {
	doc := models.Document{ID: "doc-1", Path: "a.pdf", Text: strings.Repeat("Warfarin interacts with vitamin K. ", 50)}
	c, err := NewFixedWindowChunker(120, 30)
	require.NoError(t, err)

	first := collect(c, doc)
	second := collect(c, doc)
	assert.Equal(t, first, second)

	ids := map[string]bool{}
	for _, chunk := range first {
		assert.False(t, ids[chunk.ID], "chunk IDs are unique")
		ids[chunk.ID] = true
	}
}

func TestChunks_Pages(t *testing.T) {
	doc := newDocument("a.pdf", "a.pdf", models.FormatPDF, []string{"aaaaaaaaaa", "bbbbbbbbbb"})
	c, err := NewFixedWindowChunker(6, 0)
	require.NoError(t, err)

	var pages []int
	for chunk := range c.Chunks(doc) {
		pages = append(pages, chunk.Page)
	}
	// "aaaaaa" "aaaa\n\n" "bbbbbb" "bbbb"
	assert.Equal(t, []int{1, 1, 2, 2}, pages)
}

func TestChunks_StopsEarly(t *testing.T) {
	doc := models.Document{ID: "doc", Text: strings.Repeat("x", 100)}
	c, err := NewFixedWindowChunker(10, 0)
	require.NoError(t, err)

	n := 0
	for range c.Chunks(doc) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}
