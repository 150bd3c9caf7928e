package vectorstore

import (
	"context"

	"github.com/docassist/docassist-go/internal/model"
)

// SearchHit 向量检索的原始命中结果
// 不同后端的打分口径不同：Qdrant 直接返回相似度，Chroma 返回距离。
// ByDistance 为 true 时 Distance 有效，归一化交给上层检索器处理。
type SearchHit struct {
	ID         string
	Score      float64
	Distance   float64
	ByDistance bool
	Content    string
	DocumentID string
	ChunkIndex int
	Metadata   map[string]string
}

// Index 向量索引
// Search 对集合缺失或结果为空返回空切片而非错误
type Index interface {
	Search(ctx context.Context, embedding []float64, limit int) ([]SearchHit, error)
	Upsert(ctx context.Context, collection string, chunks []model.DocumentChunk) error
	DeleteByDocument(ctx context.Context, collection, documentID string) error
	EnsureCollection(ctx context.Context, collection string, dimension int) error
}
