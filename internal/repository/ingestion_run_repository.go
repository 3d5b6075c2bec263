// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"insta-iq-go/internal/model"

	"gorm.io/gorm"
)

// ErrRunNotFound 表示指定的导入记录不存在。
var ErrRunNotFound = errors.New("ingestion run not found")

// IngestionRunRepository 定义了对 ingestion_runs 表的数据操作接口。
type IngestionRunRepository interface {
	Create(run *model.IngestionRun) error
	Update(run *model.IngestionRun) error
	FindByRunID(runID string) (*model.IngestionRun, error)
	ListByProfile(profile string, limit int) ([]model.IngestionRun, error)
}

type ingestionRunRepository struct {
	db *gorm.DB
}

// NewIngestionRunRepository 创建一个新的 IngestionRunRepository 实例。
func NewIngestionRunRepository(db *gorm.DB) IngestionRunRepository {
	return &ingestionRunRepository{db: db}
}

// Create 插入一条新的导入记录。
func (r *ingestionRunRepository) Create(run *model.IngestionRun) error {
	return r.db.Create(run).Error
}

// Update 按 run_id 更新状态与结果字段。
func (r *ingestionRunRepository) Update(run *model.IngestionRun) error {
	return r.db.Model(&model.IngestionRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]interface{}{
			"state":          run.State,
			"posts":          run.Posts,
			"inserted":       run.Inserted,
			"failed_chunks":  run.FailedChunks,
			"archive_object": run.ArchiveObject,
			"error_kind":     run.ErrorKind,
			"error_message":  run.ErrorMessage,
			"finished_at":    run.FinishedAt,
		}).Error
}

// FindByRunID 根据 run_id 查找导入记录。
func (r *ingestionRunRepository) FindByRunID(runID string) (*model.IngestionRun, error) {
	var run model.IngestionRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListByProfile 返回最近的导入记录，profile 为空时返回全部 profile 的记录。
func (r *ingestionRunRepository) ListByProfile(profile string, limit int) ([]model.IngestionRun, error) {
	var runs []model.IngestionRun
	q := r.db.Order("created_at DESC")
	if profile != "" {
		q = q.Where("profile = ?", profile)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&runs).Error
	return runs, err
}

// nopIngestionRunRepository 在未配置 MySQL 时使用，不持久化任何记录。
type nopIngestionRunRepository struct{}

// NewNopIngestionRunRepository 返回一个不做任何持久化的实现。
func NewNopIngestionRunRepository() IngestionRunRepository {
	return nopIngestionRunRepository{}
}

func (nopIngestionRunRepository) Create(*model.IngestionRun) error { return nil }
func (nopIngestionRunRepository) Update(*model.IngestionRun) error { return nil }
func (nopIngestionRunRepository) FindByRunID(string) (*model.IngestionRun, error) {
	return nil, ErrRunNotFound
}
func (nopIngestionRunRepository) ListByProfile(string, int) ([]model.IngestionRun, error) {
	return []model.IngestionRun{}, nil
}
