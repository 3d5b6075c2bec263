// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"insta-iq-go/pkg/errs"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Store         StoreConfig         `mapstructure:"store"`
	Astra         AstraConfig         `mapstructure:"astra"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Langflow      LangflowConfig      `mapstructure:"langflow"`
	Scraper       ScraperConfig       `mapstructure:"scraper"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Chat          ChatConfig          `mapstructure:"chat"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置，留空表示不启用。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储聊天会话 token 的配置。
type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	SessionExpireHours int    `mapstructure:"session_expire_hours"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// StoreConfig 选择向量库后端以及目标 collection。
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // astra | elasticsearch | qdrant
	Collection string `mapstructure:"collection"`
}

// AstraConfig 存储 Astra DB Data API 的配置。
type AstraConfig struct {
	APIEndpoint       string `mapstructure:"api_endpoint"`
	Token             string `mapstructure:"token"`
	Keyspace          string `mapstructure:"keyspace"`
	VectorizeProvider string `mapstructure:"vectorize_provider"`
	VectorizeModel    string `mapstructure:"vectorize_model"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// QdrantConfig 存储 Qdrant 的 gRPC 连接配置。
type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置（Elasticsearch / Qdrant 后端使用）。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置（聊天 llm 模式使用）。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LangflowConfig 存储检索/LLM 网关的配置。
type LangflowConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	FlowID   string        `mapstructure:"flow_id"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"` // 0 表示使用 transport 默认值
}

// ScraperConfig 存储 Instagram 抓取的配置。
type ScraperConfig struct {
	UserAgent  string        `mapstructure:"user_agent"`
	AppID      string        `mapstructure:"app_id"`
	WebBaseURL string        `mapstructure:"web_base_url"`
	APIBaseURL string        `mapstructure:"api_base_url"`
	SessionID  string        `mapstructure:"session_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxPosts   int           `mapstructure:"max_posts"`
}

// PipelineConfig 存储批量上传参数。
type PipelineConfig struct {
	ChunkSize     int           `mapstructure:"chunk_size"`
	InsertTimeout time.Duration `mapstructure:"insert_timeout"`
}

// ChatConfig 存储 Web 聊天相关的配置。
type ChatConfig struct {
	Mode         string `mapstructure:"mode"` // gateway | llm
	SystemPrompt string `mapstructure:"system_prompt"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// 原始部署使用的环境变量名，显式绑定以保持兼容。
var envBindings = map[string][]string{
	"store.collection":   {"ASTRA_DB_COLLECTION_NAME"},
	"astra.api_endpoint": {"ASTRA_DB_API_ENDPOINT"},
	"astra.token":        {"ASTRA_DB_APPLICATION_TOKEN"},
	"langflow.base_url":  {"BASE_API_URL"},
	"langflow.flow_id":   {"LANGFLOW_ID"},
	"langflow.endpoint":  {"ENDPOINT"},
	"langflow.token":     {"LANGFLOW_APPLICATION_TOKEN", "ASTRA_DB_APPLICATION_TOKEN"},
}

var defaults = map[string]interface{}{
	"server.port":                "8080",
	"server.mode":                "release",
	"log.level":                  "info",
	"log.format":                 "console",
	"log.output_path":            "",
	"database.mysql.dsn":         "",
	"database.redis.addr":        "",
	"database.redis.password":    "",
	"database.redis.db":          0,
	"jwt.secret":                 "",
	"jwt.session_expire_hours":   24,
	"kafka.brokers":              "",
	"kafka.topic":                "instaiq-ingestion",
	"kafka.group_id":             "instaiq-consumer",
	"minio.endpoint":             "",
	"minio.access_key_id":        "",
	"minio.secret_access_key":    "",
	"minio.use_ssl":              false,
	"minio.bucket_name":          "instaiq",
	"store.backend":              "astra",
	"astra.keyspace":             "default_keyspace",
	"astra.vectorize_provider":   "",
	"astra.vectorize_model":      "",
	"elasticsearch.addresses":    "",
	"elasticsearch.username":     "",
	"elasticsearch.password":     "",
	"qdrant.host":                "",
	"qdrant.port":                6334,
	"qdrant.api_key":             "",
	"qdrant.use_tls":             false,
	"embedding.api_key":          "",
	"embedding.base_url":         "",
	"embedding.model":            "",
	"embedding.dimensions":       1024,
	"llm.api_key":                "",
	"llm.base_url":               "",
	"llm.model":                  "",
	"llm.generation.temperature": 0.0,
	"llm.generation.top_p":       0.0,
	"llm.generation.max_tokens":  0,
	"langflow.timeout":           "0s",
	"scraper.user_agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"scraper.app_id":             "936619743392459",
	"scraper.web_base_url":       "https://www.instagram.com",
	"scraper.api_base_url":       "https://i.instagram.com",
	"scraper.session_id":         "",
	"scraper.timeout":            "30s",
	"scraper.max_posts":          0,
	"pipeline.chunk_size":        50,
	"pipeline.insert_timeout":    "20s",
	"chat.mode":                  "gateway",
	"chat.system_prompt":         "You are a helpful AI assistant that specializes in analyzing social media content and providing insights.",
	"chat.history_limit":         20,
}

// Load 依次读取可选的 YAML 文件、可选的 .env 文件和环境变量，返回解析后的配置。
// configPath 或 envFile 为空、或文件不存在时跳过对应来源。
func Load(configPath, envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败 %s: %w", key, err)
		}
	}
	v.SetEnvPrefix("INSTAIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv 读取 dotenv 文件并写入尚未设置的环境变量，已存在的进程环境变量优先。
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取 env 文件失败: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("解析 env 文件失败: %w", err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("设置环境变量 %s 失败: %w", name, err)
		}
	}
	return nil
}

// ValidateIngestion 检查导入流程所需的配置，缺失项以 invalid-input 错误返回。
func (c *Config) ValidateIngestion() error {
	var missing []string
	if c.Store.Collection == "" {
		missing = append(missing, "ASTRA_DB_COLLECTION_NAME")
	}
	switch c.Store.Backend {
	case "", "astra":
		if c.Astra.APIEndpoint == "" {
			missing = append(missing, "ASTRA_DB_API_ENDPOINT")
		}
		if c.Astra.Token == "" {
			missing = append(missing, "ASTRA_DB_APPLICATION_TOKEN")
		}
	case "elasticsearch":
		if c.Elasticsearch.Addresses == "" {
			missing = append(missing, "INSTAIQ_ELASTICSEARCH_ADDRESSES")
		}
		if c.Embedding.BaseURL == "" {
			missing = append(missing, "INSTAIQ_EMBEDDING_BASE_URL")
		}
	case "qdrant":
		if c.Qdrant.Host == "" {
			missing = append(missing, "INSTAIQ_QDRANT_HOST")
		}
		if c.Embedding.BaseURL == "" {
			missing = append(missing, "INSTAIQ_EMBEDDING_BASE_URL")
		}
	default:
		return errs.Invalidf(nil, "不支持的向量库后端: %s", c.Store.Backend)
	}
	return missingError(missing)
}

// ValidateQuery 检查查询网关所需的配置。
func (c *Config) ValidateQuery() error {
	var missing []string
	if c.Langflow.BaseURL == "" {
		missing = append(missing, "BASE_API_URL")
	}
	if c.Langflow.FlowID == "" {
		missing = append(missing, "LANGFLOW_ID")
	}
	if c.Langflow.Endpoint == "" {
		missing = append(missing, "ENDPOINT")
	}
	if c.Langflow.Token == "" {
		missing = append(missing, "LANGFLOW_APPLICATION_TOKEN")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return errs.Invalidf(nil, "Please ensure %s are set as environment variables.", strings.Join(missing, ", "))
}
