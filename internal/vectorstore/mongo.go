package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	metaCollection = "index_meta"
	insertBatch    = 500
)

// chunkDocument is one index entry as stored in the chunks collection.
type chunkDocument struct {
	models.Chunk   `bson:",inline"`
	Embedding      []float32 `bson:"embedding"`
	EmbeddingModel string    `bson:"embedding_model"`
	CreatedAt      time.Time `bson:"created_at"`
}

type metaDocument struct {
	ID             string    `bson:"_id"`
	EmbeddingModel string    `bson:"embedding_model"`
	Dimension      int       `bson:"dimension"`
	Entries        int       `bson:"entries"`
	BuiltAt        time.Time `bson:"built_at"`
}

// MongoStore keeps the index in MongoDB and searches it with Atlas
// $vectorSearch.
type MongoStore struct {
	db        *mongo.Database
	chunks    *mongo.Collection
	indexName string
	count     atomic.Int64
}

func NewMongoStore(ctx context.Context, db *mongo.Database, indexName string) (*MongoStore, error) {
	s := &MongoStore{
		db:        db,
		chunks:    db.Collection(config.ChunksCollection),
		indexName: indexName,
	}
	n, err := s.chunks.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	s.count.Store(n)
	return s, nil
}

func (s *MongoStore) Len() int { return int(s.count.Load()) }

// Rebuild drops the chunks collection and inserts entries afresh.
func (s *MongoStore) Rebuild(ctx context.Context, meta models.IndexMeta, entries []models.IndexEntry) error {
	if err := CheckDimensions(entries, meta.Dimension); err != nil {
		return err
	}
	meta.Entries = len(entries)
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now()
	}

	if err := s.chunks.Drop(ctx); err != nil {
		return fmt.Errorf("drop chunks: %w", err)
	}
	if err := config.CreateChunkIndexes(ctx, s.db); err != nil {
		return fmt.Errorf("create chunk indexes: %w", err)
	}

	for start := 0; start < len(entries); start += insertBatch {
		end := min(start+insertBatch, len(entries))
		docs := make([]interface{}, 0, end-start)
		for _, e := range entries[start:end] {
			docs = append(docs, chunkDocument{
				Chunk:          e.Chunk,
				Embedding:      e.Vector,
				EmbeddingModel: meta.EmbeddingModel,
				CreatedAt:      meta.BuiltAt,
			})
		}
		if _, err := s.chunks.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert chunks %d-%d: %w", start, end, err)
		}
	}

	_, err := s.db.Collection(metaCollection).ReplaceOne(ctx,
		bson.M{"_id": "current"},
		metaDocument{
			ID:             "current",
			EmbeddingModel: meta.EmbeddingModel,
			Dimension:      meta.Dimension,
			Entries:        meta.Entries,
			BuiltAt:        meta.BuiltAt,
		},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	s.count.Store(int64(len(entries)))
	return nil
}

// Meta returns the stored metadata, or the zero IndexMeta before the
// first rebuild.
func (s *MongoStore) Meta(ctx context.Context) (models.IndexMeta, error) {
	var doc metaDocument
	err := s.db.Collection(metaCollection).FindOne(ctx, bson.M{"_id": "current"}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.IndexMeta{}, nil
	}
	if err != nil {
		return models.IndexMeta{}, err
	}
	return models.IndexMeta{
		EmbeddingModel: doc.EmbeddingModel,
		Dimension:      doc.Dimension,
		Entries:        doc.Entries,
		BuiltAt:        doc.BuiltAt,
	}, nil
}

// Search runs an approximate nearest-neighbor query through the Atlas
// vector index.
func (s *MongoStore) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 || s.Len() == 0 {
		return nil, nil
	}

	pipeline := vectorSearchPipeline(s.indexName, vector, k)
	cur, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cur.Close(ctx)

	var hits []struct {
		models.Chunk `bson:",inline"`
		Score        float64 `bson:"score"`
	}
	if err := cur.All(ctx, &hits); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.SearchResult{Chunk: h.Chunk, Score: h.Score})
	}
	return results, nil
}

func vectorSearchPipeline(indexName string, vector []float32, k int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: indexName},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: max(k*20, 100)},
			{Key: "limit", Value: k},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "embedding", Value: 0},
			{Key: "embedding_model", Value: 0},
			{Key: "created_at", Value: 0},
		}}},
	}
}
