// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"strings"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/internal/pipeline"
	"insta-iq-go/internal/repository"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/tasks"

	"github.com/google/uuid"
)

// DefaultRunListLimit 是列出导入记录时的默认条数。
const DefaultRunListLimit = 20

// Ingester 执行一次导入，由 pipeline.Processor 实现。
type Ingester interface {
	IngestRun(ctx context.Context, runID, profile string) (*pipeline.IngestResult, error)
}

// TaskProducer 发送异步导入任务，由 kafka.Producer 实现。
type TaskProducer interface {
	ProduceIngestionTask(ctx context.Context, task tasks.IngestionTask) error
}

// IngestionService 定义了 profile 导入相关的操作。
type IngestionService interface {
	// Ingest 同步执行导入。
	Ingest(ctx context.Context, profile string) (*pipeline.IngestResult, error)
	// Enqueue 创建导入记录并发送 Kafka 任务，立即返回。
	Enqueue(ctx context.Context, profile string) (*model.IngestionRun, error)
	AsyncEnabled() bool
	GetRun(runID string) (*model.IngestionRun, error)
	ListRuns(profile string, limit int) ([]model.IngestionRun, error)
}

type ingestionService struct {
	cfg      *config.Config
	ingester Ingester
	producer TaskProducer
	runRepo  repository.IngestionRunRepository
}

// NewIngestionService 创建一个新的 IngestionService 实例。producer 为 nil 时不支持异步导入。
func NewIngestionService(cfg *config.Config, ingester Ingester, producer TaskProducer, runRepo repository.IngestionRunRepository) IngestionService {
	if runRepo == nil {
		runRepo = repository.NewNopIngestionRunRepository()
	}
	return &ingestionService{cfg: cfg, ingester: ingester, producer: producer, runRepo: runRepo}
}

func (s *ingestionService) validate(profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", errs.InvalidInput("Instagram ID is required.")
	}
	if err := s.cfg.ValidateIngestion(); err != nil {
		return "", err
	}
	return profile, nil
}

func (s *ingestionService) Ingest(ctx context.Context, profile string) (*pipeline.IngestResult, error) {
	profile, err := s.validate(profile)
	if err != nil {
		return nil, err
	}
	return s.ingester.IngestRun(ctx, "", profile)
}

func (s *ingestionService) AsyncEnabled() bool {
	return s.producer != nil
}

func (s *ingestionService) Enqueue(ctx context.Context, profile string) (*model.IngestionRun, error) {
	profile, err := s.validate(profile)
	if err != nil {
		return nil, err
	}
	if s.producer == nil {
		return nil, errs.InvalidInput("Asynchronous ingestion is not enabled. Please set kafka.brokers.")
	}

	run := &model.IngestionRun{
		RunID:      uuid.NewString(),
		Profile:    profile,
		Collection: s.cfg.Store.Collection,
		State:      model.StateIdle,
	}
	if err := s.runRepo.Create(run); err != nil {
		log.Warnf("[IngestionService] 创建导入记录失败, RunID: %s, error: %v", run.RunID, err)
	}
	if err := s.producer.ProduceIngestionTask(ctx, tasks.IngestionTask{RunID: run.RunID, Profile: profile}); err != nil {
		run.State = model.StateFailed
		run.ErrorKind = errs.KindRuntime.String()
		run.ErrorMessage = err.Error()
		_ = s.runRepo.Update(run)
		return nil, errs.Runtime("Failed to queue the ingestion request", err)
	}
	log.Infof("[IngestionService] 导入任务已入队, profile: %s, RunID: %s", profile, run.RunID)
	return run, nil
}

func (s *ingestionService) GetRun(runID string) (*model.IngestionRun, error) {
	run, err := s.runRepo.FindByRunID(runID)
	if errors.Is(err, repository.ErrRunNotFound) {
		return nil, errs.Invalidf(err, "Ingestion run '%s' not found.", runID)
	}
	if err != nil {
		return nil, errs.Runtime("Failed to load the ingestion run", err)
	}
	return run, nil
}

func (s *ingestionService) ListRuns(profile string, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	runs, err := s.runRepo.ListByProfile(strings.TrimSpace(profile), limit)
	if err != nil {
		return nil, errs.Runtime("Failed to list ingestion runs", err)
	}
	return runs, nil
}
