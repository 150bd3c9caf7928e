package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"go.uber.org/zap"
)

// Store Chroma 向量存储（v2 API）
// Chroma 返回的是距离而非相似度，归一化由上层检索器完成
type Store struct {
	client      chromago.Client
	collection  string
	logger      *zap.Logger
	mu          sync.Mutex
	collections map[string]chromago.Collection // 已获取的集合句柄缓存
}

// NewStore 创建 Chroma 存储
func NewStore(baseURL, collection string, logger *zap.Logger) (*Store, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("创建 Chroma 客户端失败: %w", err)
	}

	return &Store{
		client:      client,
		collection:  collection,
		logger:      logger,
		collections: make(map[string]chromago.Collection),
	}, nil
}

// Close 释放客户端资源
func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection 获取或创建集合（余弦距离）
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	col, err := s.client.GetOrCreateCollection(
		ctx,
		collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		return fmt.Errorf("创建集合失败: %w", err)
	}

	s.mu.Lock()
	s.collections[collection] = col
	s.mu.Unlock()

	s.logger.Info("Chroma 集合就绪",
		zap.String("collection", collection),
		zap.Int("dimension", dimension))
	return nil
}

// Upsert 批量写入分块
func (s *Store) Upsert(ctx context.Context, collection string, chunks []model.DocumentChunk) error {
	col, err := s.getCollection(ctx, collection, true)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	embs := make([]embeddings.Embedding, 0, len(chunks))
	metas := make([]chromago.DocumentMetadata, 0, len(chunks))

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		attrs := []*chromago.MetaAttribute{
			chromago.NewStringAttribute("document_id", c.DocumentID),
			chromago.NewStringAttribute("chunk_index", fmt.Sprintf("%d", c.ChunkIndex)),
		}
		for k, v := range c.Metadata {
			attrs = append(attrs, chromago.NewStringAttribute(k, v))
		}

		ids = append(ids, chromago.DocumentID(c.ID))
		texts = append(texts, c.Content)
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(toFloat32(c.Embedding)))
		metas = append(metas, chromago.NewDocumentMetadata(attrs...))
	}

	if len(ids) == 0 {
		return nil
	}

	if err := col.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	); err != nil {
		return fmt.Errorf("写入 Chroma 失败: %w", err)
	}

	s.logger.Info("向量已写入 Chroma",
		zap.String("collection", collection),
		zap.Int("chunks", len(ids)))
	return nil
}

// Search 向量检索
// 集合不存在时返回空结果而非错误
func (s *Store) Search(ctx context.Context, embedding []float64, limit int) ([]vectorstore.SearchHit, error) {
	col, err := s.getCollection(ctx, s.collection, false)
	if err != nil {
		s.logger.Warn("Chroma 集合不可用，返回空结果", zap.Error(err))
		return []vectorstore.SearchHit{}, nil
	}

	results, err := col.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(toFloat32(embedding))),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("查询 Chroma 失败: %w", err)
	}

	idGroups := results.GetIDGroups()
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	hits := []vectorstore.SearchHit{}
	if len(documentGroups) == 0 {
		return hits, nil
	}

	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}

		hit := vectorstore.SearchHit{
			Content:    doc.ContentString(),
			ByDistance: true,
			Metadata:   make(map[string]string),
		}
		if len(idGroups) > 0 && len(idGroups[0]) > i {
			hit.ID = string(idGroups[0][i])
		}
		if len(distanceGroups) > 0 && len(distanceGroups[0]) > i {
			hit.Distance = float64(distanceGroups[0][i])
		}
		if len(metadataGroups) > 0 && len(metadataGroups[0]) > i {
			applyMetadata(&hit, metadataGroups[0][i], s.logger)
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DeleteByDocument 按 document_id 删除分块
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	col, err := s.getCollection(ctx, collection, false)
	if err != nil {
		return fmt.Errorf("获取集合失败: %w", err)
	}

	where := chromago.EqString("document_id", documentID)
	if err := col.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("删除文档向量失败: %w", err)
	}
	return nil
}

// getCollection 取集合句柄，create 为 true 时不存在则创建
func (s *Store) getCollection(ctx context.Context, name string, create bool) (chromago.Collection, error) {
	s.mu.Lock()
	if col, ok := s.collections[name]; ok {
		s.mu.Unlock()
		return col, nil
	}
	s.mu.Unlock()

	var col chromago.Collection
	var err error
	if create {
		col, err = s.client.GetOrCreateCollection(ctx, name)
	} else {
		col, err = s.client.GetCollection(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.collections[name] = col
	s.mu.Unlock()
	return col, nil
}

// applyMetadata 把 Chroma 的元数据结构转为普通字典
// DocumentMetadata 没有公开的遍历方法，经由 JSON 转一道
func applyMetadata(hit *vectorstore.SearchHit, meta chromago.DocumentMetadata, logger *zap.Logger) {
	if meta == nil {
		return
	}

	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		logger.Warn("序列化元数据失败", zap.Error(err))
		return
	}
	var metaMap map[string]any
	if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
		logger.Warn("解析元数据失败", zap.Error(err))
		return
	}

	for k, v := range metaMap {
		switch k {
		case "document_id":
			if id, ok := v.(string); ok {
				hit.DocumentID = id
			}
		case "chunk_index":
			switch idx := v.(type) {
			case string:
				fmt.Sscanf(idx, "%d", &hit.ChunkIndex)
			case float64:
				hit.ChunkIndex = int(idx)
			}
		default:
			hit.Metadata[k] = fmt.Sprintf("%v", v)
		}
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
