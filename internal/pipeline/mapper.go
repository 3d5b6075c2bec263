package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"insta-iq-go/internal/model"
)

var (
	// ErrInvalidSchema 表示表头缺少必需的列（包括向量文本列）。
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidMetadata 表示某一行的 metadata 无法解析为 map。
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrInvalidRow 表示某一行的字段无法解析。
	ErrInvalidRow = errors.New("invalid row")
)

// MapDocuments 把表格 blob 解析为向量文档：vectorColumn 列的值移到 $vectorize，
// metadata 字符串解析为 map。任何一行失败都会中止整个映射，不返回部分结果。
func MapDocuments(blob string, vectorColumn string) ([]model.VectorDocument, error) {
	r := csv.NewReader(strings.NewReader(blob))

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: column '%s' not found in the CSV data", ErrInvalidSchema, vectorColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index[vectorColumn]; !ok {
		return nil, fmt.Errorf("%w: column '%s' not found in the CSV data", ErrInvalidSchema, vectorColumn)
	}
	for _, name := range model.Columns {
		if _, ok := index[name]; !ok && name != model.ColumnVectorize {
			return nil, fmt.Errorf("%w: column '%s' not found in the CSV data", ErrInvalidSchema, name)
		}
	}

	var docs []model.VectorDocument
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidRow, line, err)
		}

		row := make(map[string]string, len(header))
		for name, i := range index {
			row[name] = record[i]
		}
		doc, err := mapRow(row, vectorColumn)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func mapRow(row map[string]string, vectorColumn string) (model.VectorDocument, error) {
	vectorText := row[vectorColumn]
	delete(row, vectorColumn)

	postID, err := strconv.ParseInt(row[model.ColumnPostID], 10, 64)
	if err != nil {
		return model.VectorDocument{}, fmt.Errorf("%w: post_id: %v", ErrInvalidRow, err)
	}
	postType, err := model.ParsePostType(row[model.ColumnPostType])
	if err != nil {
		return model.VectorDocument{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	likes, err := strconv.ParseInt(row[model.ColumnLikes], 10, 64)
	if err != nil {
		return model.VectorDocument{}, fmt.Errorf("%w: likes: %v", ErrInvalidRow, err)
	}
	comments, err := strconv.ParseInt(row[model.ColumnComments], 10, 64)
	if err != nil {
		return model.VectorDocument{}, fmt.Errorf("%w: comments: %v", ErrInvalidRow, err)
	}
	metadata, err := parseMapLiteral(row[model.ColumnMetadata])
	if err != nil {
		return model.VectorDocument{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	// metadata 中的旧标签与顶层字段保持一致
	if label, ok := metadata[model.ColumnPostType].(string); ok {
		if normalized, err := model.ParsePostType(label); err == nil {
			metadata[model.ColumnPostType] = string(normalized)
		}
	}

	return model.VectorDocument{
		PostID:     postID,
		PostType:   postType,
		Likes:      likes,
		Comments:   comments,
		DatePosted: row[model.ColumnDatePosted],
		Vectorize:  vectorText,
		Content:    row[model.ColumnContent],
		Metadata:   metadata,
		Username:   row[model.ColumnUsername],
	}, nil
}
