package model

import "time"

// IngestionState 是单次导入请求的状态机状态。
type IngestionState string

const (
	StateIdle                IngestionState = "idle"
	StateScraping            IngestionState = "scraping"
	StateConnecting          IngestionState = "connecting"
	StateCollectionResolving IngestionState = "collection_resolving"
	StateSerializing         IngestionState = "serializing"
	StateMapping             IngestionState = "mapping"
	StateUploading           IngestionState = "uploading"
	StateDone                IngestionState = "done"
	StateFailed              IngestionState = "failed"
)

// Terminal 表示该状态是否为终态。
func (s IngestionState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// IngestionRun 对应于数据库中的 ingestion_runs 表，记录一次导入的状态流转与结果。
type IngestionRun struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID         string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"runId"`
	Profile       string         `gorm:"type:varchar(100);index;not null" json:"profile"`
	Collection    string         `gorm:"type:varchar(100)" json:"collection"`
	State         IngestionState `gorm:"type:varchar(32);not null" json:"state"`
	Posts         int            `gorm:"not null;default:0" json:"posts"`
	Inserted      int            `gorm:"not null;default:0" json:"inserted"`
	FailedChunks  string         `gorm:"type:varchar(255)" json:"failedChunks"` // 逗号分隔的 chunk 序号（从 1 开始）
	ArchiveObject string         `gorm:"type:varchar(255)" json:"archiveObject"`
	ErrorKind     string         `gorm:"type:varchar(32)" json:"errorKind,omitempty"`
	ErrorMessage  string         `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	FinishedAt    *time.Time     `gorm:"default:null" json:"finishedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
