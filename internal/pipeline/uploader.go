package pipeline

import (
	"context"
	"time"

	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/vectorstore"
)

const (
	// DefaultChunkSize 是每次批量写入的文档数。
	DefaultChunkSize = 50
	// DefaultInsertTimeout 是单次批量写入的超时预算。
	DefaultInsertTimeout = 20 * time.Second
)

// UploadResult 汇总一次批量上传的结果。
type UploadResult struct {
	Documents    int   `json:"documents"`
	Chunks       int   `json:"chunks"`
	Inserted     int   `json:"inserted"`
	FailedChunks []int `json:"failedChunks,omitempty"` // 从 1 开始的 chunk 序号
}

// Uploader 把文档按固定大小切块后逐块写入 collection。
type Uploader struct {
	chunkSize int
	timeout   time.Duration
}

// NewUploader 创建 Uploader，非正数参数使用默认值。
func NewUploader(chunkSize int, timeout time.Duration) *Uploader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if timeout <= 0 {
		timeout = DefaultInsertTimeout
	}
	return &Uploader{chunkSize: chunkSize, timeout: timeout}
}

// Upload 按原始顺序逐块调用 InsertMany。失败的 chunk 只记录日志，不重试也不重新入队，
// 后续 chunk 继续执行；Inserted 只统计成功的 chunk。
func (u *Uploader) Upload(ctx context.Context, coll vectorstore.Collection, docs []model.VectorDocument) UploadResult {
	result := UploadResult{Documents: len(docs)}

	for start := 0; start < len(docs); start += u.chunkSize {
		end := start + u.chunkSize
		if end > len(docs) {
			end = len(docs)
		}
		chunkNo := start/u.chunkSize + 1
		result.Chunks++

		inserted, err := u.insertChunk(ctx, coll, docs[start:end])
		if err != nil {
			log.Errorf("[Uploader] Error inserting chunk %d: %v", chunkNo, err)
			result.FailedChunks = append(result.FailedChunks, chunkNo)
			continue
		}
		result.Inserted += inserted
		log.Infof("[Uploader] Inserted %d items in chunk %d.", inserted, chunkNo)
	}

	log.Infof("[Uploader] Successfully inserted %d items into the collection '%s'.", result.Inserted, coll.Name())
	return result
}

func (u *Uploader) insertChunk(ctx context.Context, coll vectorstore.Collection, chunk []model.VectorDocument) (int, error) {
	chunkCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	return coll.InsertMany(chunkCtx, chunk)
}
