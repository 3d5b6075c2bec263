package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/log"
)

const astraAPIPath = "/api/json/v1"

// ErrAstraCommand 表示 Data API 返回了 errors 字段。
var ErrAstraCommand = errors.New("astra data api command failed")

// AstraStore 通过 Astra DB Data API (HTTP JSON) 访问向量库，向量由服务端 $vectorize 生成。
type AstraStore struct {
	cfg    config.AstraConfig
	client *http.Client
}

// NewAstraStore 创建 AstraStore。client 为 nil 时使用默认 http.Client。
func NewAstraStore(cfg config.AstraConfig, client *http.Client) *AstraStore {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Keyspace == "" {
		cfg.Keyspace = "default_keyspace"
	}
	return &AstraStore{cfg: cfg, client: client}
}

// Connect 校验 endpoint 与 token 并返回 keyspace 句柄。Data API 是无状态的，实际请求在首个命令时发出。
func (s *AstraStore) Connect(ctx context.Context) (Database, error) {
	if s.cfg.Token == "" {
		return nil, errors.New("astra application token is empty")
	}
	u, err := url.Parse(s.cfg.APIEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid astra api endpoint %q", s.cfg.APIEndpoint)
	}
	base := strings.TrimRight(s.cfg.APIEndpoint, "/") + astraAPIPath + "/" + s.cfg.Keyspace
	log.Infof("[AstraStore] 使用 keyspace '%s', endpoint: %s", s.cfg.Keyspace, u.Host)
	return &astraDatabase{store: s, baseURL: base}, nil
}

type astraDatabase struct {
	store   *AstraStore
	baseURL string
}

func (d *astraDatabase) Name() string {
	return d.store.cfg.Keyspace
}

type astraResponse struct {
	Status struct {
		Collections []string          `json:"collections"`
		InsertedIDs []json.RawMessage `json:"insertedIds"`
		OK          int               `json:"ok"`
	} `json:"status"`
	Errors []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	} `json:"errors"`
}

// GetOrCreateCollection 先 findCollections，不存在时 createCollection（cosine，可选 vectorize 服务）。
func (d *astraDatabase) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	var found astraResponse
	if err := d.store.command(ctx, d.baseURL, map[string]interface{}{"findCollections": map[string]interface{}{}}, &found); err != nil {
		return nil, fmt.Errorf("find collections: %w", err)
	}
	for _, existing := range found.Status.Collections {
		if existing == name {
			log.Infof("[AstraStore] collection '%s' 已存在", name)
			return &astraCollection{store: d.store, name: name, url: d.baseURL + "/" + name}, nil
		}
	}

	vector := map[string]interface{}{"metric": "cosine"}
	if d.store.cfg.VectorizeProvider != "" {
		vector["service"] = map[string]interface{}{
			"provider":  d.store.cfg.VectorizeProvider,
			"modelName": d.store.cfg.VectorizeModel,
		}
	}
	create := map[string]interface{}{
		"createCollection": map[string]interface{}{
			"name":    name,
			"options": map[string]interface{}{"vector": vector},
		},
	}
	if err := d.store.command(ctx, d.baseURL, create, &astraResponse{}); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	log.Infof("[AstraStore] collection '%s' 创建成功", name)
	return &astraCollection{store: d.store, name: name, url: d.baseURL + "/" + name}, nil
}

type astraCollection struct {
	store *AstraStore
	name  string
	url   string
}

func (c *astraCollection) Name() string {
	return c.name
}

// InsertMany 以 ordered:false 批量写入，返回 insertedIds 的数量。
func (c *astraCollection) InsertMany(ctx context.Context, docs []model.VectorDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	body := map[string]interface{}{
		"insertMany": map[string]interface{}{
			"documents": docs,
			"options":   map[string]interface{}{"ordered": false},
		},
	}
	var resp astraResponse
	if err := c.store.command(ctx, c.url, body, &resp); err != nil {
		return len(resp.Status.InsertedIDs), err
	}
	return len(resp.Status.InsertedIDs), nil
}

// command 发送一条 Data API 命令。即使返回 errors，也会先解码 status 供调用方统计部分成功。
func (s *AstraStore) command(ctx context.Context, endpoint string, payload interface{}, out *astraResponse) error {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call data api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read data api response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data api returned status %s: %s", resp.Status, truncate(string(raw), 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode data api response: %w", err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrAstraCommand, out.Errors[0].Message)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
