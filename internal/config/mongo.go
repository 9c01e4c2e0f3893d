package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChunksCollection holds index entries for the mongo backend.
const ChunksCollection = "chunks"

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

// CreateChunkIndexes creates the regular indexes on the chunks collection.
// The Atlas vector search index itself is managed in Atlas.
func CreateChunkIndexes(ctx context.Context, db *mongo.Database) error {
	chunks := db.Collection(ChunksCollection)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chunk_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "document_id", Value: 1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "order", Value: 1}}},
	}
	_, err := chunks.Indexes().CreateMany(ctx, models)
	return err
}
