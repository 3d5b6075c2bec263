// Package langflow 提供调用 Langflow flow 运行接口的查询网关客户端。
package langflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/log"
)

var (
	// ErrEmptyQuery 在发起任何网络请求之前返回。
	ErrEmptyQuery = errors.New("query is empty")
	// ErrRequestFailed 表示传输失败或非 2xx 状态码。
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidResponse 表示响应不是 JSON，或缺少 outputs[0].outputs[0].results.message.data.text。
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrEmptyAnswer 表示提取到的文本为空。
	ErrEmptyAnswer = errors.New("empty answer")
)

// AnswerPath 是响应中答案文本所在的路径。
var AnswerPath = []interface{}{"outputs", 0, "outputs", 0, "results", "message", "data", "text"}

// Response 包含完整的上游 JSON 和提取出的答案。
type Response struct {
	Raw  map[string]interface{}
	Text string
}

// Client 是查询网关接口。
type Client interface {
	Run(ctx context.Context, query string) (*Response, error)
}

type httpClient struct {
	cfg    config.LangflowConfig
	client *http.Client
}

// NewClient 创建查询网关客户端。Timeout 为 0 时不额外设置超时。
func NewClient(cfg config.LangflowConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type runRequest struct {
	InputValue string `json:"input_value"`
	OutputType string `json:"output_type"`
	InputType  string `json:"input_type"`
}

// URL 返回 {base}/lf/{flow}/api/v1/run/{endpoint}。
func URL(cfg config.LangflowConfig) string {
	return fmt.Sprintf("%s/lf/%s/api/v1/run/%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.FlowID, cfg.Endpoint)
}

// Run 发送一次查询并提取答案文本。不重试。
func (c *httpClient) Run(ctx context.Context, query string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	reqBytes, err := json.Marshal(runRequest{InputValue: query, OutputType: "chat", InputType: "chat"})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}
	url := URL(c.cfg)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	log.Infof("[LangflowClient] Sending vector search request to: %s", url)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[LangflowClient] API request failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[LangflowClient] API 返回非 2xx 状态码: %s", resp.Status)
		return nil, fmt.Errorf("%w: status %s", ErrRequestFailed, resp.Status)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	value, ok := Lookup(raw, AnswerPath...)
	if !ok {
		return nil, ErrInvalidResponse
	}
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: answer is %T, not a string", ErrInvalidResponse, value)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyAnswer
	}
	log.Info("[LangflowClient] Vector search request successful.")
	return &Response{Raw: raw, Text: text}, nil
}

// Lookup 沿路径访问解码后的 JSON。string 段访问对象字段，int 段访问数组下标。
func Lookup(v interface{}, path ...interface{}) (interface{}, bool) {
	cur := v
	for _, seg := range path {
		switch key := seg.(type) {
		case string:
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			if cur, ok = obj[key]; !ok {
				return nil, false
			}
		case int:
			arr, ok := cur.([]interface{})
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			cur = arr[key]
		default:
			return nil, false
		}
	}
	return cur, true
}
