// Package pipeline 定义了 profile 导入的核心流程：
// 抓取 → 连接向量库 → 解析 collection → 序列化 → 映射 → 批量上传。
package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"insta-iq-go/internal/model"
	"insta-iq-go/internal/repository"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/scraper"
	"insta-iq-go/pkg/tasks"
	"insta-iq-go/pkg/vectorstore"

	"github.com/google/uuid"
)

// BlobArchiver 保存每次导入生成的表格 blob，返回对象名。
type BlobArchiver interface {
	ArchiveBlob(ctx context.Context, profile, runID, blob string) (string, error)
}

// IngestResult 是一次成功导入的结果。
type IngestResult struct {
	RunID         string       `json:"runId"`
	Profile       string       `json:"profile"`
	Collection    string       `json:"collection"`
	Posts         int          `json:"posts"`
	Upload        UploadResult `json:"upload"`
	ArchiveObject string       `json:"archiveObject,omitempty"`
}

// Processor 封装了导入流程的所有依赖。每次请求独立执行，不保留跨请求状态。
type Processor struct {
	scraper      scraper.Scraper
	store        vectorstore.Store
	collection   string
	vectorColumn string
	uploader     *Uploader
	runRepo      repository.IngestionRunRepository
	archive      BlobArchiver
}

// NewProcessor 创建一个新的 Processor 实例。runRepo 为 nil 时不记录导入记录，archive 为 nil 时不归档。
func NewProcessor(
	s scraper.Scraper,
	store vectorstore.Store,
	collection string,
	uploader *Uploader,
	runRepo repository.IngestionRunRepository,
	archive BlobArchiver,
) *Processor {
	if runRepo == nil {
		runRepo = repository.NewNopIngestionRunRepository()
	}
	if uploader == nil {
		uploader = NewUploader(DefaultChunkSize, DefaultInsertTimeout)
	}
	return &Processor{
		scraper:      s,
		store:        store,
		collection:   collection,
		vectorColumn: model.ColumnVectorize,
		uploader:     uploader,
		runRepo:      runRepo,
		archive:      archive,
	}
}

// Process 实现 kafka.TaskProcessor，执行一个异步导入任务。
func (p *Processor) Process(ctx context.Context, task tasks.IngestionTask) error {
	_, err := p.IngestRun(ctx, task.RunID, task.Profile)
	return err
}

// Ingest 以新的 run id 导入一个 profile。
func (p *Processor) Ingest(ctx context.Context, profile string) (*IngestResult, error) {
	return p.IngestRun(ctx, "", profile)
}

// IngestRun 导入一个 profile。runID 为空时生成新的 run id；已存在的记录会被复用。
// 返回的错误总是 *errs.Error（invalid-input 或 runtime）。
func (p *Processor) IngestRun(ctx context.Context, runID, profile string) (*IngestResult, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, errs.InvalidInput("Profile name is empty. Please provide a valid profile name.")
	}
	if p.collection == "" {
		return nil, errs.InvalidInput("ASTRA_DB_COLLECTION_NAME environment variable is not set.")
	}

	run := p.openRun(runID, profile)
	log.Infof("[Processor] 开始导入 profile: %s, RunID: %s", profile, run.RunID)

	result, err := p.execute(ctx, run)
	now := time.Now()
	run.FinishedAt = &now
	if err != nil {
		run.ErrorKind = errs.KindOf(err).String()
		run.ErrorMessage = err.Error()
		p.transition(run, model.StateFailed)
		log.Errorf("[Processor] 导入失败, profile: %s, RunID: %s, error: %v", profile, run.RunID, err)
		return nil, err
	}
	p.transition(run, model.StateDone)
	log.Infof("[Processor] 导入完成, profile: %s, 帖子 %d 条, 成功写入 %d 条", profile, result.Posts, result.Upload.Inserted)
	return result, nil
}

func (p *Processor) execute(ctx context.Context, run *model.IngestionRun) (*IngestResult, error) {
	profile := run.Profile

	// 1. 抓取 profile 的帖子
	p.transition(run, model.StateScraping)
	scraped, err := p.scraper.FetchProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, scraper.ErrProfileNotFound) {
			return nil, errs.Invalidf(err, "The profile '%s' does not exist.", profile)
		}
		return nil, errs.Runtimef(err, "An error occurred while fetching data for profile '%s'", profile)
	}
	run.Posts = len(scraped.Posts)
	log.Infof("[Processor] 步骤1: 抓取完成, 共 %d 条帖子", run.Posts)

	// 2. 连接向量库
	p.transition(run, model.StateConnecting)
	db, err := p.store.Connect(ctx)
	if err != nil {
		return nil, errs.Runtime("An unexpected error occurred while connecting to the database", err)
	}
	log.Infof("[Processor] 步骤2: 已连接数据库 %s", db.Name())

	// 3. 获取或创建 collection
	p.transition(run, model.StateCollectionResolving)
	coll, err := db.GetOrCreateCollection(ctx, p.collection)
	if err != nil {
		return nil, errs.Runtimef(err, "Failed to create collection '%s'", p.collection)
	}
	log.Infof("[Processor] 步骤3: collection '%s' 就绪", coll.Name())

	// 4. 生成记录并序列化为 CSV
	p.transition(run, model.StateSerializing)
	records := ExtractRecords(scraped)
	blob, err := SerializeCSV(records)
	if err != nil {
		return nil, errs.Runtime("An error occurred while serializing post records", err)
	}
	p.archiveBlob(ctx, run, blob)

	// 5. 映射为向量文档
	p.transition(run, model.StateMapping)
	docs, err := MapDocuments(blob, p.vectorColumn)
	if err != nil {
		if errors.Is(err, ErrInvalidSchema) {
			return nil, errs.Invalidf(err, "Column '%s' not found in the CSV data.", p.vectorColumn)
		}
		return nil, errs.Runtime("An unexpected error occurred during the CSV upload process", err)
	}
	log.Infof("[Processor] 步骤5: 映射得到 %d 个向量文档", len(docs))

	// 6. 分块上传
	p.transition(run, model.StateUploading)
	upload := p.uploader.Upload(ctx, coll, docs)
	run.Inserted = upload.Inserted
	run.FailedChunks = joinInts(upload.FailedChunks)
	if len(upload.FailedChunks) > 0 {
		log.Warnf("[Processor] %d 个 chunk 写入失败且不会重试: %s", len(upload.FailedChunks), run.FailedChunks)
	}

	return &IngestResult{
		RunID:         run.RunID,
		Profile:       profile,
		Collection:    coll.Name(),
		Posts:         run.Posts,
		Upload:        upload,
		ArchiveObject: run.ArchiveObject,
	}, nil
}

// openRun 复用已存在的导入记录或创建新记录。记录失败只影响可观测性，不影响导入本身。
func (p *Processor) openRun(runID, profile string) *model.IngestionRun {
	if runID != "" {
		if existing, err := p.runRepo.FindByRunID(runID); err == nil {
			existing.Profile = profile
			return existing
		}
	} else {
		runID = uuid.NewString()
	}
	run := &model.IngestionRun{
		RunID:      runID,
		Profile:    profile,
		Collection: p.collection,
		State:      model.StateIdle,
	}
	if err := p.runRepo.Create(run); err != nil {
		log.Warnf("[Processor] 创建导入记录失败, RunID: %s, error: %v", runID, err)
	}
	return run
}

func (p *Processor) transition(run *model.IngestionRun, state model.IngestionState) {
	log.Infow("[Processor] 状态变更", "runId", run.RunID, "from", run.State, "to", state)
	run.State = state
	if err := p.runRepo.Update(run); err != nil {
		log.Warnf("[Processor] 更新导入记录失败, RunID: %s, error: %v", run.RunID, err)
	}
}

func (p *Processor) archiveBlob(ctx context.Context, run *model.IngestionRun, blob string) {
	if p.archive == nil {
		return
	}
	object, err := p.archive.ArchiveBlob(ctx, run.Profile, run.RunID, blob)
	if err != nil {
		log.Warnw("[Processor] 归档 CSV 失败", "runId", run.RunID, "profile", run.Profile, "error", err)
		return
	}
	run.ArchiveObject = object
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
