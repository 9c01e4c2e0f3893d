package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/utils"

	"github.com/redis/go-redis/v9"
)

// CachedEmbedder keeps query embeddings in Redis. Cache failures are
// logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next  Embedder
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

func NewCachedEmbedder(next Embedder, rdb *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, rdb: rdb, model: model, ttl: ttl}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	getCtx, cancel := utils.WithShortTimeout(ctx)
	raw, err := c.rdb.Get(getCtx, key).Bytes()
	cancel()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal(raw, &vec); jsonErr == nil {
			return vec, nil
		}
		logger.Warn("Discarding malformed cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("Embedding cache read failed", "error", err)
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		setCtx, cancel := utils.WithShortTimeout(ctx)
		if err := c.rdb.Set(setCtx, key, data, c.ttl).Err(); err != nil {
			logger.Warn("Embedding cache write failed", "error", err)
		}
		cancel()
	}
	return vec, nil
}

// EmbedBatch delegates document embeddings uncached when the wrapped
// embedder supports batching.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if b, ok := c.next.(BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := c.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
