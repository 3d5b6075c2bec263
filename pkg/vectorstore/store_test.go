package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
)

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    interface{}
	}{
		{"", &AstraStore{}},
		{"astra", &AstraStore{}},
		{"elasticsearch", &ElasticStore{}},
		{"qdrant", &QdrantStore{}},
	}
	for _, tt := range tests {
		cfg := &config.Config{Store: config.StoreConfig{Backend: tt.backend}}
		store, err := New(cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, tt.want, store, tt.backend)
	}

	_, err := New(&config.Config{Store: config.StoreConfig{Backend: "pinecone"}}, nil)
	assert.Error(t, err)
}

func TestEmbeddingBackendsRequireEmbedder(t *testing.T) {
	_, err := NewElasticStore(config.ElasticsearchConfig{Addresses: "http://localhost:9200"}, config.EmbeddingConfig{}, nil).Connect(context.Background())
	assert.Error(t, err)
	_, err = NewQdrantStore(config.QdrantConfig{Host: "localhost", Port: 6334}, config.EmbeddingConfig{}, nil).Connect(context.Background())
	assert.Error(t, err)
}

func TestPointIDIsStable(t *testing.T) {
	a := model.VectorDocument{Username: "nasa", PostID: 1}
	b := model.VectorDocument{Username: "nasa", PostID: 2}
	assert.Equal(t, PointID(a), PointID(a))
	assert.NotEqual(t, PointID(a), PointID(b))
	assert.Len(t, PointID(a), 36)
}

func TestPointPayload(t *testing.T) {
	payload := pointPayload(model.VectorDocument{
		PostID:    9,
		PostType:  model.PostTypeReels,
		Vectorize: "summary",
		Metadata:  map[string]interface{}{"username": "nasa"},
		Username:  "nasa",
	})
	assert.Equal(t, "summary", payload["$vectorize"])
	assert.Equal(t, "reels", payload["post_type"])
	assert.Equal(t, map[string]any{"username": "nasa"}, payload["metadata"])
}

func TestElasticIndexMappingDims(t *testing.T) {
	assert.Contains(t, indexMapping(1024), `"dims": 1024`)
}
