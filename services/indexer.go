package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medical-rag-chatbot/internal/ai"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/vectorstore"
	"medical-rag-chatbot/models"
)

type IndexerOptions struct {
	EmbeddingModel string
	Dimension      int
}

// BuildReport summarizes one ingestion run.
type BuildReport struct {
	Documents   int
	Skipped     []SkippedFile
	Unsupported int
	Chunks      int
	Meta        models.IndexMeta
	Duration    time.Duration
}

// Indexer rebuilds the vector index from a document directory.
type Indexer struct {
	loader   *DocumentLoader
	chunker  *FixedWindowChunker
	embedder ai.Embedder
	writer   vectorstore.Writer
	opts     IndexerOptions
	log      *slog.Logger
}

func NewIndexer(loader *DocumentLoader, chunker *FixedWindowChunker, embedder ai.Embedder, writer vectorstore.Writer, opts IndexerOptions, log *slog.Logger) *Indexer {
	if log == nil {
		log = logger.Get()
	}
	return &Indexer{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		writer:   writer,
		opts:     opts,
		log:      log,
	}
}

// Build loads, chunks and embeds every document under dir and replaces the
// index with the result.
func (ix *Indexer) Build(ctx context.Context, dir string) (*BuildReport, error) {
	start := time.Now()

	loaded, err := ix.loader.Load(ctx, dir)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, doc := range loaded.Documents {
		for chunk := range ix.chunker.Chunks(doc) {
			if strings.TrimSpace(chunk.Text) == "" {
				continue
			}
			chunks = append(chunks, chunk)
		}
	}
	ix.log.Info("Documents chunked", "documents", len(loaded.Documents), "chunks", len(chunks), "skipped", len(loaded.Skipped))

	vectors, err := ix.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	entries := make([]models.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = models.IndexEntry{Chunk: c, Vector: vectors[i]}
	}
	if err := vectorstore.CheckDimensions(entries, ix.opts.Dimension); err != nil {
		return nil, err
	}

	meta := models.IndexMeta{
		EmbeddingModel: ix.opts.EmbeddingModel,
		Dimension:      ix.opts.Dimension,
		Entries:        len(entries),
		BuiltAt:        time.Now().UTC(),
	}
	if err := ix.writer.Rebuild(ctx, meta, entries); err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}

	report := &BuildReport{
		Documents:   len(loaded.Documents),
		Skipped:     loaded.Skipped,
		Unsupported: loaded.Unsupported,
		Chunks:      len(entries),
		Meta:        meta,
		Duration:    time.Since(start),
	}
	ix.log.Info("Index rebuilt", "entries", meta.Entries, "model", meta.EmbeddingModel, "duration_ms", report.Duration.Milliseconds())
	return report, nil
}

func (ix *Indexer) embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	if batcher, ok := ix.embedder.(ai.BatchEmbedder); ok {
		vectors, err := batcher.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(texts))
		}
		return vectors, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %w", ErrEmbedding, chunks[i].ID, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
