// Package app 按配置组装服务端与 CLI 共用的依赖。可选基础设施（MySQL、Redis、Kafka、MinIO、LLM）
// 仅在对应配置非空时启用。
package app

import (
	"context"
	"fmt"
	"io"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/pipeline"
	"insta-iq-go/internal/repository"
	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/database"
	"insta-iq-go/pkg/embedding"
	"insta-iq-go/pkg/kafka"
	"insta-iq-go/pkg/langflow"
	"insta-iq-go/pkg/llm"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/scraper"
	"insta-iq-go/pkg/storage"
	"insta-iq-go/pkg/token"
	"insta-iq-go/pkg/vectorstore"

	"github.com/google/uuid"
)

// App 持有组装完成的服务。
type App struct {
	Config    *config.Config
	Processor *pipeline.Processor
	Runs      repository.IngestionRunRepository
	Ingestion service.IngestionService
	Query     service.QueryService
	Chat      service.ChatService
	JWT       *token.JWTManager

	reader  kafka.MessageReader
	closers []func() error
}

// Options 控制组装哪些组件。CLI 不需要消费者和聊天。
type Options struct {
	Consumer bool
}

// New 根据配置创建 App。基础设施连接失败时返回错误；未配置的组件以本地实现代替。
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	// 1. 导入记录 (MySQL)
	a.Runs = repository.NewNopIngestionRunRepository()
	if cfg.Database.MySQL.DSN != "" {
		db, err := database.OpenMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, err
		}
		a.Runs = repository.NewIngestionRunRepository(db)
		a.closers = append(a.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	} else {
		log.Info("[App] 未配置 MySQL，导入记录不会持久化")
	}

	// 2. 会话历史 (Redis)
	conversationRepo := repository.NewMemoryConversationRepository(cfg.Chat.HistoryLimit)
	if cfg.Database.Redis.Addr != "" {
		rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		conversationRepo = repository.NewConversationRepository(rdb, cfg.Chat.HistoryLimit)
		a.closers = append(a.closers, rdb.Close)
	} else {
		log.Info("[App] 未配置 Redis，会话历史保存在内存中")
	}

	// 3. 归档 (MinIO)
	var archive pipeline.BlobArchiver
	if cfg.MinIO.Endpoint != "" {
		arc, err := storage.NewArchive(ctx, cfg.MinIO)
		if err != nil {
			a.Close()
			return nil, err
		}
		archive = arc
	}

	// 4. 向量库与导入管道
	var embedder embedding.Client
	if cfg.Embedding.BaseURL != "" {
		embedder = embedding.NewClient(cfg.Embedding)
	}
	store, err := vectorstore.New(cfg, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	a.Processor = pipeline.NewProcessor(
		scraper.NewInstagramScraper(cfg.Scraper),
		store,
		cfg.Store.Collection,
		pipeline.NewUploader(cfg.Pipeline.ChunkSize, cfg.Pipeline.InsertTimeout),
		a.Runs,
		archive,
	)

	// 5. 异步导入 (Kafka)
	var producer service.TaskProducer
	if cfg.Kafka.Brokers != "" {
		p := kafka.NewProducer(cfg.Kafka)
		producer = p
		a.closers = append(a.closers, p.Close)
		if opts.Consumer {
			a.reader = kafka.NewReader(cfg.Kafka)
		}
	}

	// 6. 服务
	a.Ingestion = service.NewIngestionService(cfg, a.Processor, producer, a.Runs)
	a.Query = service.NewQueryService(cfg, langflow.NewClient(cfg.Langflow))

	var llmClient llm.Client
	if cfg.LLM.BaseURL != "" {
		llmClient = llm.NewClient(cfg.LLM)
	}
	a.Chat = service.NewChatService(cfg.Chat, a.Query, llmClient, conversationRepo)

	secret := cfg.JWT.Secret
	if secret == "" {
		log.Warnf("[App] 未配置 jwt.secret，使用随机密钥，重启后会话 token 失效")
		secret = uuid.NewString()
	}
	a.JWT = token.NewJWTManager(secret, cfg.JWT.SessionExpireHours)

	return a, nil
}

// WarnMissingConfig 在启动时提示缺失的必需配置；请求时仍会逐次校验。
func (a *App) WarnMissingConfig() {
	if err := a.Config.ValidateIngestion(); err != nil {
		log.Warnf("[App] 导入配置不完整: %v", err)
	}
	if err := a.Config.ValidateQuery(); err != nil {
		log.Warnf("[App] 查询配置不完整: %v", err)
	}
}

// StartConsumer 在后台运行 Kafka 消费者，直到 ctx 结束。未配置 Kafka 时返回 false。
func (a *App) StartConsumer(ctx context.Context) bool {
	if a.reader == nil {
		return false
	}
	go kafka.Consume(ctx, a.reader, a.Processor)
	return true
}

// Close 按创建的逆序释放连接。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Errorf("[App] 释放资源失败: %v", err)
		}
	}
	a.closers = nil
}

// String 概述启用的组件，便于启动日志。
func (a *App) String() string {
	backend := a.Config.Store.Backend
	if backend == "" {
		backend = "astra"
	}
	return fmt.Sprintf("store=%s mysql=%t redis=%t kafka=%t minio=%t chat=%s",
		backend,
		a.Config.Database.MySQL.DSN != "",
		a.Config.Database.Redis.Addr != "",
		a.Config.Kafka.Brokers != "",
		a.Config.MinIO.Endpoint != "",
		a.Config.Chat.Mode,
	)
}
