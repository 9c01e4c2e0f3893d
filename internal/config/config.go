package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects which settings Validate treats as required.
type Mode string

const (
	ModeServe  Mode = "serve"
	ModeIngest Mode = "ingest"
	ModeAsk    Mode = "ask"
)

// Supported providers and backends
const (
	LLMProviderGemini      = "gemini"
	LLMProviderHuggingFace = "huggingface"

	EmbeddingsProviderGoogle = "google"

	IndexBackendSQLite = "sqlite"
	IndexBackendMongo  = "mongo"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFormSize int64

	// LLM
	LLMProvider  string
	LLMModel     string
	LLMTimeout   time.Duration
	LLMRPM       int
	GeminiAPIKey string
	HFAPIURL     string
	HFAPIToken   string

	// Embeddings
	EmbeddingsProvider    string // "google" (default)
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	VectorDimensions      int

	// Chunking and retrieval
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	SimilarityThreshold float64

	// Storage
	DataDir      string
	IndexPath    string
	IndexBackend string

	// MongoDB Atlas vector search backend
	MongoURI        string
	DBName          string
	VectorIndexName string

	// Redis query embedding cache
	RedisURL      string
	RedisPassword string
	RedisDB       int
	EmbedCacheTTL time.Duration

	// Telemetry
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		MaxFormSize: getEnvInt64("MAX_FORM_BYTES", 64<<10),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", LLMProviderGemini)),
		LLMModel:     getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMTimeout:   getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		LLMRPM:       getEnvInt("LLM_RPM", 60),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		HFAPIURL:     getEnv("HF_API_URL", ""),
		HFAPIToken:   getEnv("HF_API_TOKEN", ""),

		EmbeddingsProvider:    strings.ToLower(getEnv("EMBEDDINGS_PROVIDER", EmbeddingsProviderGoogle)),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),

		ChunkSize:           getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 50),
		TopK:                getEnvInt("TOP_K", 1),
		SimilarityThreshold: getEnvFloat64("SIMILARITY_THRESHOLD", 0),

		DataDir:      getEnv("DATA_DIR", "./data"),
		IndexPath:    getEnv("INDEX_PATH", "./vectorstore"),
		IndexBackend: strings.ToLower(getEnv("INDEX_BACKEND", IndexBackendSQLite)),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "medical_rag"),
		VectorIndexName: getEnv("MONGODB_VECTOR_INDEX", "chunks_vector"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EmbedCacheTTL: getEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	return cfg, nil
}

// Validate checks the settings required by the given mode and returns
// every problem found, joined into one error.
func (c *Config) Validate(mode Mode) error {
	var errs []error

	if c.EmbeddingsProvider != EmbeddingsProviderGoogle {
		errs = append(errs, fmt.Errorf("unknown embeddings provider: %s", c.EmbeddingsProvider))
	}
	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required for embeddings - set it in .env file"))
	}
	if c.VectorDimensions <= 0 {
		errs = append(errs, fmt.Errorf("VECTOR_DIM must be positive, got %d", c.VectorDimensions))
	}

	switch c.IndexBackend {
	case IndexBackendSQLite:
		if strings.TrimSpace(c.IndexPath) == "" {
			errs = append(errs, errors.New("INDEX_PATH is required"))
		}
	case IndexBackendMongo:
		if c.MongoURI == "" || c.DBName == "" || c.VectorIndexName == "" {
			errs = append(errs, errors.New("MONGO_URI, DB_NAME and MONGODB_VECTOR_INDEX are required for the mongo index backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index backend: %s", c.IndexBackend))
	}

	if mode == ModeIngest {
		if c.ChunkSize <= 0 {
			errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
		}
		if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
			errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
		}
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, errors.New("DATA_DIR is required"))
		}
	}

	if mode == ModeServe || mode == ModeAsk {
		if c.TopK < 1 {
			errs = append(errs, fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK))
		}
		if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
			errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in [0, 1], got %v", c.SimilarityThreshold))
		}
		switch c.LLMProvider {
		case LLMProviderGemini:
			if c.LLMModel == "" {
				errs = append(errs, errors.New("LLM_MODEL is required"))
			}
		case LLMProviderHuggingFace:
			if c.HFAPIURL == "" {
				errs = append(errs, errors.New("HF_API_URL is required when LLM_PROVIDER=huggingface"))
			}
			if c.HFAPIToken == "" {
				errs = append(errs, errors.New("HF_API_TOKEN is required when LLM_PROVIDER=huggingface"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown LLM provider: %s", c.LLMProvider))
		}
		if c.LLMRPM <= 0 {
			errs = append(errs, fmt.Errorf("LLM_RPM must be positive, got %d", c.LLMRPM))
		}
	}

	if mode == ModeServe && c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}

	return errors.Join(errs...)
}

// EmbedCacheEnabled reports whether query embeddings should be cached in Redis.
func (c *Config) EmbedCacheEnabled() bool {
	return c.RedisURL != "" && c.EmbedCacheTTL > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
