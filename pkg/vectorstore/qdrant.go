package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/embedding"
	"insta-iq-go/pkg/log"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace 用于从 username:post_id 派生稳定的 UUIDv5 点 id，重复导入时覆盖而不是重复写入。
var pointNamespace = uuid.MustParse("6f1d3c52-9a0e-4d7b-8c1e-3b5a2f4e7d90")

// QdrantStore 通过 gRPC 访问 Qdrant，向量由 embedding 客户端在本地生成。
// gRPC 客户端在首次 Connect 时创建，之后所有导入共用，Close 时释放。
type QdrantStore struct {
	cfg      config.QdrantConfig
	dims     int
	embedder embedding.Client

	mu     sync.Mutex
	client *qdrant.Client
}

// NewQdrantStore 创建 QdrantStore。
func NewQdrantStore(cfg config.QdrantConfig, embCfg config.EmbeddingConfig, embedder embedding.Client) *QdrantStore {
	return &QdrantStore{cfg: cfg, dims: embCfg.Dimensions, embedder: embedder}
}

// Connect 复用（必要时创建）gRPC 客户端并做一次健康检查。
func (s *QdrantStore) Connect(ctx context.Context) (Database, error) {
	if s.embedder == nil {
		return nil, errors.New("qdrant backend requires an embedding client")
	}
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	reply, err := client.HealthCheck(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}
	log.Infof("[QdrantStore] 已连接 Qdrant %s:%d, version: %s", s.cfg.Host, s.cfg.Port, reply.GetVersion())
	return &qdrantDatabase{store: s, client: client}, nil
}

func (s *QdrantStore) getClient() (*qdrant.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   s.cfg.Host,
		Port:   s.cfg.Port,
		APIKey: s.cfg.APIKey,
		UseTLS: s.cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	s.client = client
	return client, nil
}

// Close 关闭 gRPC 连接。之后再次 Connect 会重新创建客户端。
func (s *QdrantStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

type qdrantDatabase struct {
	store  *QdrantStore
	client *qdrant.Client
}

func (d *qdrantDatabase) Name() string {
	return "qdrant"
}

func (d *qdrantDatabase) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(d.store.dims),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
		log.Infof("[QdrantStore] collection '%s' 创建成功", name)
	}
	return &qdrantCollection{db: d, name: name}, nil
}

type qdrantCollection struct {
	db   *qdrantDatabase
	name string
}

func (c *qdrantCollection) Name() string {
	return c.name
}

// InsertMany 生成向量后一次 Upsert 整个 chunk，并等待写入完成。
func (c *qdrantCollection) InsertMany(ctx context.Context, docs []model.VectorDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Vectorize
	}
	vectors, err := c.db.store.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunk: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(d)),
			Vectors: qdrant.NewVectorsDense(vectors[i]),
			Payload: qdrant.NewValueMap(pointPayload(d)),
		}
	}
	wait := true
	if _, err := c.db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return 0, fmt.Errorf("upsert points: %w", err)
	}
	return len(points), nil
}

// PointID 返回文档对应的 UUIDv5 点 id。
func PointID(d model.VectorDocument) string {
	return uuid.NewSHA1(pointNamespace, []byte(d.Key())).String()
}

func pointPayload(d model.VectorDocument) map[string]any {
	metadata := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		metadata[k] = v
	}
	return map[string]any{
		model.ColumnPostID:     d.PostID,
		model.ColumnPostType:   string(d.PostType),
		model.ColumnLikes:      d.Likes,
		model.ColumnComments:   d.Comments,
		model.ColumnDatePosted: d.DatePosted,
		model.ColumnContent:    d.Content,
		model.ColumnMetadata:   metadata,
		model.ColumnUsername:   d.Username,
		model.VectorField:      d.Vectorize,
	}
}
