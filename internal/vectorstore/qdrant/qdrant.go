package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"go.uber.org/zap"
)

// errCollectionNotFound 集合不存在时 Qdrant 返回 404
var errCollectionNotFound = errors.New("集合不存在")

// Store Qdrant REST 客户端
// Qdrant 的 REST 接口足够简单，无需引入 SDK
type Store struct {
	url        string
	apiKey     string
	collection string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStore 创建 Qdrant 存储
func NewStore(url, apiKey, collection string, logger *zap.Logger) *Store {
	return &Store{
		url:        url,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// EnsureCollection 创建集合（已存在时 Qdrant 返回 200，不视为错误）
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("向量维度非法: %d", dimension)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, collection), body)
}

// Upsert 批量写入分块
func (s *Store) Upsert(ctx context.Context, collection string, chunks []model.DocumentChunk) error {
	points := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		payload := map[string]any{
			"chunk_id":    c.ID,
			"document_id": c.DocumentID,
			"content":     c.Content,
			"chunk_index": c.ChunkIndex,
		}
		for k, v := range c.Metadata {
			payload[k] = v
		}
		points = append(points, map[string]any{
			"id":      c.ID,
			"vector":  c.Embedding,
			"payload": payload,
		})
	}

	if len(points) == 0 {
		return nil
	}

	body := map[string]any{"points": points}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection), body); err != nil {
		return fmt.Errorf("写入向量失败: %w", err)
	}

	s.logger.Info("向量已写入 Qdrant",
		zap.String("collection", collection),
		zap.Int("points", len(points)))
	return nil
}

// Search 向量检索
// Qdrant 直接返回相似度得分，按得分降序排列
func (s *Store) Search(ctx context.Context, embedding []float64, limit int) ([]vectorstore.SearchHit, error) {
	req := map[string]any{
		"vector":       embedding,
		"limit":        limit,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		// 集合尚未创建时视为无结果，与其它向量库适配器保持一致
		if errors.Is(err, errCollectionNotFound) {
			s.logger.Warn("Qdrant 集合不存在，返回空结果",
				zap.String("collection", s.collection))
			return []vectorstore.SearchHit{}, nil
		}
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	hits := make([]vectorstore.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := vectorstore.SearchHit{
			ID:       fmt.Sprintf("%v", r.ID),
			Score:    r.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range r.Payload {
			switch k {
			case "chunk_id":
				if id, ok := v.(string); ok {
					hit.ID = id
				}
			case "content":
				if c, ok := v.(string); ok {
					hit.Content = c
				}
			case "document_id":
				if d, ok := v.(string); ok {
					hit.DocumentID = d
				}
			case "chunk_index":
				if idx, ok := v.(float64); ok {
					hit.ChunkIndex = int(idx)
				}
			default:
				hit.Metadata[k] = fmt.Sprintf("%v", v)
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DeleteByDocument 按 document_id 过滤删除
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, collection), body, nil); err != nil {
		return fmt.Errorf("删除文档向量失败: %w", err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errCollectionNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s 返回错误: %s", method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	return nil
}
