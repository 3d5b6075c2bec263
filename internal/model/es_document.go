package model

// EsPostDocument 定义了存储在 Elasticsearch 中的帖子文档结构。
// Elasticsearch 不支持服务端 $vectorize，向量由 embedding 客户端计算后写入 vector 字段。
type EsPostDocument struct {
	DocID         string                 `json:"doc_id"` // username:post_id
	PostID        int64                  `json:"post_id"`
	PostType      PostType               `json:"post_type"`
	Likes         int64                  `json:"likes"`
	Comments      int64                  `json:"comments"`
	DatePosted    string                 `json:"date_posted"`
	VectorizeText string                 `json:"vectorize_text"`
	Vector        []float32              `json:"vector"`
	Content       string                 `json:"content"`
	Metadata      map[string]interface{} `json:"metadata"`
	Username      string                 `json:"username"`
	ModelVersion  string                 `json:"model_version"`
}

// NewEsPostDocument 由向量文档和向量构造 ES 文档。
func NewEsPostDocument(doc VectorDocument, vector []float32, modelVersion string) EsPostDocument {
	return EsPostDocument{
		DocID:         doc.Key(),
		PostID:        doc.PostID,
		PostType:      doc.PostType,
		Likes:         doc.Likes,
		Comments:      doc.Comments,
		DatePosted:    doc.DatePosted,
		VectorizeText: doc.Vectorize,
		Vector:        vector,
		Content:       doc.Content,
		Metadata:      doc.Metadata,
		Username:      doc.Username,
		ModelVersion:  modelVersion,
	}
}
