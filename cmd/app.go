package main

import (
	"context"
	"fmt"

	"medical-rag-chatbot/internal/ai"
	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/telemetry"
	"medical-rag-chatbot/internal/vectorstore"
	"medical-rag-chatbot/models"
	"medical-rag-chatbot/services"
	"medical-rag-chatbot/utils"

	"github.com/redis/go-redis/v9"
)

// loadConfig reads and validates configuration, then starts logging.
func loadConfig(mode config.Mode) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	logger.InitLogger(cfg)
	return cfg, nil
}

// cleanup runs registered close functions in reverse order.
type cleanup []func()

func (c *cleanup) add(f func()) { *c = append(*c, f) }

func (c *cleanup) run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
}

// openIndex loads the read-side index for serve and ask.
func openIndex(ctx context.Context, cfg *config.Config, done *cleanup) (vectorstore.Index, models.IndexMeta, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, models.IndexMeta{}, err
		}
		done.add(func() {
			ctx, cancel := utils.WithTimeout(context.Background())
			defer cancel()
			client.Disconnect(ctx)
		})

		store, err := vectorstore.NewMongoStore(ctx, client.Database(cfg.DBName), cfg.VectorIndexName)
		if err != nil {
			return nil, models.IndexMeta{}, err
		}
		meta, err := store.Meta(ctx)
		if err != nil {
			return nil, models.IndexMeta{}, fmt.Errorf("failed to read index metadata: %w", err)
		}
		return store, meta, nil

	default:
		store, err := vectorstore.OpenSQLiteStore(cfg.IndexPath)
		if err != nil {
			return nil, models.IndexMeta{}, err
		}
		// The whole index is held in memory; the file is not needed after loading
		defer store.Close()

		meta, idx, err := store.Load(ctx)
		if err != nil {
			return nil, models.IndexMeta{}, fmt.Errorf("failed to load index from %s: %w", store.Path(), err)
		}
		return idx, meta, nil
	}
}

// openWriter returns the write-side index for ingest.
func openWriter(cfg *config.Config, done *cleanup) (vectorstore.Writer, string, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, "", err
		}
		done.add(func() {
			ctx, cancel := utils.WithTimeout(context.Background())
			defer cancel()
			client.Disconnect(ctx)
		})

		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		store, err := vectorstore.NewMongoStore(ctx, client.Database(cfg.DBName), cfg.VectorIndexName)
		if err != nil {
			return nil, "", err
		}
		return store, fmt.Sprintf("mongodb %s.%s", cfg.DBName, config.ChunksCollection), nil

	default:
		store, err := vectorstore.OpenSQLiteStore(cfg.IndexPath)
		if err != nil {
			return nil, "", err
		}
		done.add(func() { store.Close() })
		return store, store.Path(), nil
	}
}

// checkIndexMeta enforces that the stored vectors match the configured
// embedding dimension.
func checkIndexMeta(cfg *config.Config, meta models.IndexMeta) error {
	if meta.Entries == 0 {
		logger.Warn("Vector index is empty, every question will get the no-context answer",
			"backend", cfg.IndexBackend)
		return nil
	}
	if meta.Dimension != cfg.VectorDimensions {
		return fmt.Errorf("index was built with %d-dimensional vectors, VECTOR_DIM is %d: rebuild with `medchat ingest`",
			meta.Dimension, cfg.VectorDimensions)
	}
	if meta.EmbeddingModel != cfg.GoogleEmbeddingsModel {
		logger.Warn("Index was built with a different embedding model",
			"index_model", meta.EmbeddingModel,
			"configured_model", cfg.GoogleEmbeddingsModel)
	}
	return nil
}

// openRedis connects to Redis when the embedding cache is configured. The
// cache is optional, so an unreachable server is logged and yields nil.
func openRedis(cfg *config.Config, done *cleanup) *redis.Client {
	if !cfg.EmbedCacheEnabled() {
		return nil
	}
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, embedding cache disabled", "error", err)
		return nil
	}
	done.add(func() { rdb.Close() })
	return rdb
}

// newEmbedder creates and probes the embedding model. Query embeddings are
// cached when rdb is non-nil.
func newEmbedder(ctx context.Context, cfg *config.Config, rdb *redis.Client, done *cleanup) (ai.Embedder, error) {
	gemini, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	done.add(func() { gemini.Close() })

	probeCtx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()
	if err := gemini.Probe(probeCtx); err != nil {
		return nil, err
	}
	logger.Info("Embedding model ready", "model", gemini.Model(), "dimension", gemini.Dimension())

	if rdb == nil {
		return gemini, nil
	}
	logger.Info("Embedding cache enabled", "ttl", cfg.EmbedCacheTTL.String())
	return ai.NewCachedEmbedder(gemini, rdb, gemini.Model(), cfg.EmbedCacheTTL), nil
}

// buildRetriever wires embedder, index and LLM client. Any failure here is
// a startup failure.
func buildRetriever(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, rdb *redis.Client, done *cleanup) (*services.Retriever, error) {
	embedder, err := newEmbedder(ctx, cfg, rdb, done)
	if err != nil {
		return nil, err
	}

	index, meta, err := openIndex(ctx, cfg, done)
	if err != nil {
		return nil, err
	}
	if err := checkIndexMeta(cfg, meta); err != nil {
		return nil, err
	}
	logger.Info("Vector index loaded", "backend", cfg.IndexBackend, "entries", index.Len(), "built_at", meta.BuiltAt)

	generator, closeGenerator, err := ai.NewGenerator(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	done.add(func() { closeGenerator() })

	return services.NewRetriever(embedder, index, generator, services.RetrieverOptions{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, metrics), nil
}
