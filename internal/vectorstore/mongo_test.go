package vectorstore

import (
	"context"
	"os"
	"testing"
	"time"

	"medical-rag-chatbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestVectorSearchPipeline(t *testing.T) {
	p := vectorSearchPipeline("chunks_vector", []float32{0.1, 0.2}, 3)
	require.Len(t, p, 3)

	stage := p[0][0]
	assert.Equal(t, "$vectorSearch", stage.Key)
	search := stage.Value.(bson.D).Map()
	assert.Equal(t, "chunks_vector", search["index"])
	assert.Equal(t, "embedding", search["path"])
	assert.Equal(t, 100, search["numCandidates"])
	assert.Equal(t, 3, search["limit"])

	assert.Equal(t, "$addFields", p[1][0].Key)
	assert.Equal(t, "$project", p[2][0].Key)
}

// Rebuild runs against any MongoDB; $vectorSearch needs Atlas and is not
// exercised here.
func TestMongoStore_Rebuild(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("medical_rag_test_" + time.Now().Format("20060102150405"))
	defer db.Drop(context.Background())

	store, err := NewMongoStore(ctx, db, "chunks_vector")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	entries := []models.IndexEntry{entry("a", 1, 0), entry("b", 0, 1)}
	require.NoError(t, store.Rebuild(ctx, models.IndexMeta{EmbeddingModel: "m", Dimension: 2}, entries))
	assert.Equal(t, 2, store.Len())

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Entries)

	require.NoError(t, store.Rebuild(ctx, models.IndexMeta{EmbeddingModel: "m", Dimension: 2}, entries[:1]))
	n, err := db.Collection("chunks").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
