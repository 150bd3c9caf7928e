package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"go.uber.org/zap"
)

// Store 内存向量存储（开发与测试用）
// 以余弦相似度全量扫描，不做持久化
type Store struct {
	chunks map[string]*model.DocumentChunk
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewStore 创建内存向量存储
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		chunks: make(map[string]*model.DocumentChunk),
		logger: logger,
	}
}

// EnsureCollection 内存实现无集合概念，直接返回
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

// Upsert 写入分块
func (s *Store) Upsert(ctx context.Context, collection string, chunks []model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range chunks {
		c := chunks[i]
		if c.ID == "" {
			return fmt.Errorf("分块 ID 不能为空")
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("分块向量不能为空: %s", c.ID)
		}
		s.chunks[c.ID] = &c
	}

	s.logger.Info("分块已写入内存存储",
		zap.Int("count", len(chunks)),
		zap.Int("total", len(s.chunks)))
	return nil
}

// Search 余弦相似度检索（返回 Top-K）
func (s *Store) Search(ctx context.Context, embedding []float64, limit int) ([]vectorstore.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}

	hits := make([]vectorstore.SearchHit, 0, len(s.chunks))
	for _, c := range s.chunks {
		score := cosineSimilarity(embedding, c.Embedding)
		hits = append(hits, vectorstore.SearchHit{
			ID:         c.ID,
			Score:      score,
			Content:    c.Content,
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Metadata:   c.Metadata,
		})
	}

	// 按相似度降序
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// DeleteByDocument 删除指定文档的全部分块
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			delete(s.chunks, id)
			removed++
		}
	}

	s.logger.Info("文档分块已删除",
		zap.String("documentId", documentID),
		zap.Int("removed", removed))
	return nil
}

// Count 当前分块数量
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// cosineSimilarity 计算余弦相似度（0-1，越高越相似）
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (normA * normB)
}
