package ai

import (
	"context"
	"errors"
	"fmt"

	"medical-rag-chatbot/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// maxEmbedBatch is the largest batch BatchEmbedContents accepts.
const maxEmbedBatch = 100

const probeText = "embedding dimension probe"

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by embedders that can embed many
// document texts per call.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiEmbedder embeds text with a Google embedding model over one
// long-lived genai client.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates the embedding client selected by cfg.
func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	switch cfg.EmbeddingsProvider {
	case config.EmbeddingsProviderGoogle, "":
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     cfg.GoogleEmbeddingsModel,
		dimension: cfg.VectorDimensions,
	}, nil
}

// Model returns the embedding model identifier.
func (e *GeminiEmbedder) Model() string { return e.model }

// Dimension returns the configured vector length.
func (e *GeminiEmbedder) Dimension() int { return e.dimension }

// Embed returns the query embedding for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	model.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, errors.New("no embedding returned")
	}

	return resp.Embedding.Values, nil
}

// EmbedBatch returns document embeddings for texts, in order.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	model.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch := model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("batch %d-%d: got %d embeddings", start, end, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			if emb == nil {
				return nil, errors.New("no embedding returned")
			}
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

// Probe embeds a fixed string and checks the vector length against the
// configured dimension.
func (e *GeminiEmbedder) Probe(ctx context.Context) error {
	vec, err := e.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("embedding model %s unavailable: %w", e.model, err)
	}
	if len(vec) != e.dimension {
		return fmt.Errorf("embedding model %s returns %d dimensions, VECTOR_DIM is %d", e.model, len(vec), e.dimension)
	}
	return nil
}

// Close the client
func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
