package vectorstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/embedding"
	"insta-iq-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticStore 把每个 collection 映射为一个 Elasticsearch 索引，向量由 embedding 客户端在本地生成。
// 客户端及其连接池在首次 Connect 时创建，之后所有导入共用。
type ElasticStore struct {
	cfg      config.ElasticsearchConfig
	dims     int
	embedder embedding.Client

	mu        sync.Mutex
	client    *elasticsearch.Client
	transport *http.Transport
}

// NewElasticStore 创建 ElasticStore。
func NewElasticStore(cfg config.ElasticsearchConfig, embCfg config.EmbeddingConfig, embedder embedding.Client) *ElasticStore {
	return &ElasticStore{cfg: cfg, dims: embCfg.Dimensions, embedder: embedder}
}

// Connect 复用（必要时创建）客户端并通过 Info 请求确认集群可达。
func (s *ElasticStore) Connect(ctx context.Context) (Database, error) {
	if s.embedder == nil {
		return nil, errors.New("elasticsearch backend requires an embedding client")
	}
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info returned %s", res.Status())
	}
	log.Infof("[ElasticStore] 已连接 Elasticsearch: %s", s.cfg.Addresses)
	return &elasticDatabase{store: s, client: client}, nil
}

func (s *ElasticStore) getClient() (*elasticsearch.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(s.cfg.Addresses, ","),
		Username:  s.cfg.Username,
		Password:  s.cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	s.client, s.transport = client, transport
	return client, nil
}

// Close 释放连接池中的空闲连接。之后再次 Connect 会重新创建客户端。
func (s *ElasticStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.client, s.transport = nil, nil
	return nil
}

type elasticDatabase struct {
	store  *ElasticStore
	client *elasticsearch.Client
}

func (d *elasticDatabase) Name() string {
	return "elasticsearch"
}

// GetOrCreateCollection 检查索引是否存在，如果不存在则以 dense_vector(cosine) mapping 创建。
func (d *elasticDatabase) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	index := strings.ToLower(name)
	res, err := d.client.Indices.Exists([]string{index}, d.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("check index %s: %w", index, err)
	}
	res.Body.Close()
	coll := &elasticCollection{db: d, index: index}
	if res.StatusCode == http.StatusOK {
		log.Infof("[ElasticStore] 索引 '%s' 已存在", index)
		return coll, nil
	}
	if res.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("check index %s: unexpected status %d", index, res.StatusCode)
	}

	res, err = d.client.Indices.Create(
		index,
		d.client.Indices.Create.WithContext(ctx),
		d.client.Indices.Create.WithBody(strings.NewReader(indexMapping(d.store.dims))),
	)
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("create index %s: %s", index, res.String())
	}
	log.Infof("[ElasticStore] 索引 '%s' 创建成功", index)
	return coll, nil
}

func indexMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"doc_id": { "type": "keyword" },
				"post_id": { "type": "long" },
				"post_type": { "type": "keyword" },
				"likes": { "type": "long" },
				"comments": { "type": "long" },
				"date_posted": { "type": "date", "format": "strict_date_hour_minute_second" },
				"vectorize_text": { "type": "text" },
				"content": { "type": "text" },
				"metadata": { "type": "object" },
				"username": { "type": "keyword" },
				"model_version": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)
}

type elasticCollection struct {
	db    *elasticDatabase
	index string
}

func (c *elasticCollection) Name() string {
	return c.index
}

type bulkResponse struct {
	Items []map[string]struct {
		Status int `json:"status"`
	} `json:"items"`
}

// InsertMany 先批量生成向量，再通过 _bulk 写入，返回状态码 < 300 的条目数。
func (c *elasticCollection) InsertMany(ctx context.Context, docs []model.VectorDocument) (int, error) {
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

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i, d := range docs {
		esDoc := model.NewEsPostDocument(d, vectors[i], c.db.store.embedder.ModelVersion())
		if err := enc.Encode(map[string]interface{}{"index": map[string]string{"_index": c.index, "_id": esDoc.DocID}}); err != nil {
			return 0, err
		}
		if err := enc.Encode(esDoc); err != nil {
			return 0, err
		}
	}

	req := esapi.BulkRequest{Body: &body, Refresh: "true"}
	res, err := req.Do(ctx, c.db.client)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk index: %s", res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	inserted := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Status < 300 {
				inserted++
			}
		}
	}
	if inserted < len(docs) {
		log.Warnf("[ElasticStore] bulk 写入 %d/%d 条成功", inserted, len(docs))
	}
	return inserted, nil
}
