// Package model 定义了帖子记录、向量文档以及持久化实体。
package model

import (
	"fmt"
	"time"
)

// PostType 是帖子类型的枚举。
type PostType string

const (
	// PostTypeStaticImage 是非视频帖子的规范取值。
	PostTypeStaticImage PostType = "static_image"
	// PostTypeReels 是视频帖子。
	PostTypeReels PostType = "reels"

	// legacyStaticImage 是早期导入脚本写入的标签，读取时归一化为 PostTypeStaticImage。
	legacyStaticImage = "static-image"
)

// PostTypeOf 根据视频标记推导帖子类型。
func PostTypeOf(isVideo bool) PostType {
	if isVideo {
		return PostTypeReels
	}
	return PostTypeStaticImage
}

// ParsePostType 解析帖子类型，接受旧标签 "static-image"。
func ParsePostType(s string) (PostType, error) {
	switch s {
	case string(PostTypeStaticImage), legacyStaticImage:
		return PostTypeStaticImage, nil
	case string(PostTypeReels):
		return PostTypeReels, nil
	default:
		return "", fmt.Errorf("unknown post type %q", s)
	}
}

// 表格 blob 的固定列，顺序即 CSV 表头顺序。
const (
	ColumnPostID     = "post_id"
	ColumnPostType   = "post_type"
	ColumnLikes      = "likes"
	ColumnComments   = "comments"
	ColumnDatePosted = "date_posted"
	ColumnVectorize  = "vectorize"
	ColumnContent    = "content"
	ColumnMetadata   = "metadata"
	ColumnUsername   = "username"
)

// Columns 是 CSV Serializer 使用的 9 列 schema。
var Columns = []string{
	ColumnPostID,
	ColumnPostType,
	ColumnLikes,
	ColumnComments,
	ColumnDatePosted,
	ColumnVectorize,
	ColumnContent,
	ColumnMetadata,
	ColumnUsername,
}

// VectorField 是向量库保留的向量化文本字段名。
const VectorField = "$vectorize"

// DateLayout 是 date_posted 的 ISO-8601 格式（UTC，无时区后缀）。
const DateLayout = "2006-01-02T15:04:05"

// PostRecord 是一条抓取到的帖子，创建后不再修改。
type PostRecord struct {
	PostID     int64
	PostType   PostType
	Likes      int64
	Comments   int64
	DatePosted time.Time
	Vectorize  string
	Content    string
	Metadata   map[string]string
	Username   string
}

// VectorDocument 是写入向量库的文档：vectorize 列被重命名为 $vectorize，metadata 已解析为 map。
type VectorDocument struct {
	PostID     int64                  `json:"post_id"`
	PostType   PostType               `json:"post_type"`
	Likes      int64                  `json:"likes"`
	Comments   int64                  `json:"comments"`
	DatePosted string                 `json:"date_posted"`
	Vectorize  string                 `json:"$vectorize"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Username   string                 `json:"username"`
}

// Key 返回文档在 profile 内的唯一键。
func (d VectorDocument) Key() string {
	return fmt.Sprintf("%s:%d", d.Username, d.PostID)
}
