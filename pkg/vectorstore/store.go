// Package vectorstore 抽象了外部向量库：连接、获取或创建 collection、批量写入。
package vectorstore

import (
	"context"
	"fmt"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/embedding"
)

// Store 负责建立到向量库的连接。
type Store interface {
	Connect(ctx context.Context) (Database, error)
}

// Database 是一个已连接的向量库。
type Database interface {
	Name() string
	// GetOrCreateCollection 幂等地获取 collection，不存在时以 cosine 相似度创建。
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)
}

// Collection 是向量库中的一个文档容器。
type Collection interface {
	Name() string
	// InsertMany 写入一批文档，返回成功写入的数量。
	InsertMany(ctx context.Context, docs []model.VectorDocument) (int, error)
}

// New 根据 store.backend 创建对应的 Store。Elasticsearch 和 Qdrant 需要 embedding 客户端在本地计算向量。
func New(cfg *config.Config, embedder embedding.Client) (Store, error) {
	switch cfg.Store.Backend {
	case "", "astra":
		return NewAstraStore(cfg.Astra, nil), nil
	case "elasticsearch":
		return NewElasticStore(cfg.Elasticsearch, cfg.Embedding, embedder), nil
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, cfg.Embedding, embedder), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend %q", cfg.Store.Backend)
	}
}
