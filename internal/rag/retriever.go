package rag

import (
	"context"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"go.uber.org/zap"
)

// Searcher 向量检索的最小接口
type Searcher interface {
	Search(ctx context.Context, embedding []float64, limit int) ([]vectorstore.SearchHit, error)
}

// Retriever 相关性检索器
// 负责把底层命中结果统一成 [0,1] 的相似度并按阈值过滤
type Retriever struct {
	searcher Searcher
	minScore float64
	logger   *zap.Logger
}

// NewRetriever 创建检索器
func NewRetriever(searcher Searcher, minScore float64, logger *zap.Logger) *Retriever {
	return &Retriever{
		searcher: searcher,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve 检索相关分块
// 检索失败降级为无上下文，不向上传播错误
func (r *Retriever) Retrieve(ctx context.Context, embedding []float64, limit int) []model.RetrievedChunk {
	hits, err := r.searcher.Search(ctx, embedding, limit)
	if err != nil {
		r.logger.Warn("向量检索失败，降级为无上下文回答", zap.Error(err))
		return []model.RetrievedChunk{}
	}

	chunks := []model.RetrievedChunk{}
	for _, hit := range hits {
		score := normalizeScore(hit)
		if score < r.minScore {
			continue
		}
		chunks = append(chunks, model.RetrievedChunk{
			ID:         hit.ID,
			Score:      score,
			Content:    hit.Content,
			DocumentID: hit.DocumentID,
			ChunkIndex: hit.ChunkIndex,
			Metadata:   hit.Metadata,
		})
	}

	r.logger.Info("检索完成",
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(chunks)),
		zap.Float64("minScore", r.minScore))
	return chunks
}

// normalizeScore 把命中结果换算成 [0,1] 的相似度
// 距离型后端使用 1/(1+distance)，相似度型后端裁剪到有效区间
func normalizeScore(hit vectorstore.SearchHit) float64 {
	if hit.ByDistance {
		return 1.0 / (1.0 + hit.Distance)
	}
	score := hit.Score
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
