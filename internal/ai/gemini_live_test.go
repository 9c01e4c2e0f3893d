package ai

import (
	"context"
	"os"
	"testing"
	"time"

	"medical-rag-chatbot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveConfig(t *testing.T) *config.Config {
	t.Helper()
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	return &config.Config{
		GeminiAPIKey:          key,
		EmbeddingsProvider:    config.EmbeddingsProviderGoogle,
		GoogleEmbeddingsModel: "text-embedding-004",
		VectorDimensions:      768,
		LLMProvider:           config.LLMProviderGemini,
		LLMModel:              "gemini-2.0-flash",
		LLMTimeout:            30 * time.Second,
		LLMRPM:                10,
	}
}

func TestGeminiEmbedder_Live(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()

	e, err := NewGeminiEmbedder(ctx, cfg)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Probe(ctx))

	vectors, err := e.EmbedBatch(ctx, []string{"Aspirin reduces fever.", "Insulin lowers blood sugar."})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], cfg.VectorDimensions)
}

func TestGeminiClient_Live(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()

	gc, err := NewGeminiClient(ctx, cfg, nil)
	require.NoError(t, err)
	defer gc.Close()

	answer, err := gc.Generate(ctx, "Answer in one word: what color is the sky on a clear day?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}
