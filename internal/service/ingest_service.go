package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docassist/docassist-go/internal/chunker"
	"github.com/docassist/docassist-go/internal/event"
	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TextExtractor 文档文本提取接口
type TextExtractor interface {
	Supports(filename string) bool
	ExtractText(path string) (string, error)
}

// BatchEmbedder 批量向量化接口
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// DocumentStore 文档元数据存取接口
type DocumentStore interface {
	Save(ctx context.Context, doc *model.Document) error
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, chunks int, errorMessage string) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
}

// IngestService 文档摄取服务
// 负责上传登记、异步向量化处理和删除的全生命周期
type IngestService struct {
	documents  DocumentStore
	extractor  TextExtractor
	chunker    *chunker.TextChunker
	embedder   BatchEmbedder
	index      vectorstore.Index
	publisher  EventPublisher
	collection string
	logger     *zap.Logger
}

// NewIngestService 创建摄取服务
func NewIngestService(
	documents DocumentStore,
	extractor TextExtractor,
	textChunker *chunker.TextChunker,
	embedder BatchEmbedder,
	index vectorstore.Index,
	publisher EventPublisher,
	collection string,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		documents:  documents,
		extractor:  extractor,
		chunker:    textChunker,
		embedder:   embedder,
		index:      index,
		publisher:  publisher,
		collection: collection,
		logger:     logger,
	}
}

// Upload 登记一份已落盘的文档并发布上传事件
// 文件类型在这里快速失败，不进入处理队列
func (s *IngestService) Upload(ctx context.Context, userID, name, description, filePath string, size int64) (*model.Document, error) {
	if !s.extractor.Supports(name) {
		return nil, ErrUnsupportedFile
	}

	now := time.Now()
	doc := &model.Document{
		ID:          uuid.New().String(),
		Name:        name,
		UserID:      userID,
		Status:      model.DocumentStatusPending,
		FilePath:    filePath,
		Description: description,
		Size:        size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	// 上传事件驱动后续处理，发布失败必须让调用方知道
	if s.publisher != nil {
		payload := map[string]interface{}{
			"documentId": doc.ID,
			"userId":     doc.UserID,
			"name":       doc.Name,
			"filePath":   doc.FilePath,
		}
		if err := s.publisher.Publish(ctx, event.TopicDocumentUploaded, payload); err != nil {
			return nil, fmt.Errorf("发布上传事件失败: %w", err)
		}
	}

	s.logger.Info("文档已登记",
		zap.String("documentId", doc.ID),
		zap.String("name", doc.Name),
		zap.String("userId", doc.UserID))
	return doc, nil
}

// Process 处理一份待向量化的文档
// 提取、分块、一次批量向量化、一次批量写入，任一步失败都落 failed 状态
func (s *IngestService) Process(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, model.DocumentStatusProcessing, 0, ""); err != nil {
		return err
	}

	text, err := s.extractor.ExtractText(doc.FilePath)
	if err != nil {
		return s.fail(ctx, doc, fmt.Errorf("提取文本失败: %w", err))
	}

	pieces := s.chunker.Chunk(text)
	if len(pieces) == 0 {
		return s.fail(ctx, doc, fmt.Errorf("文档没有可提取的文本内容"))
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return s.fail(ctx, doc, fmt.Errorf("批量向量化失败: %w", err))
	}
	if len(embeddings) != len(pieces) {
		return s.fail(ctx, doc, fmt.Errorf("向量数量与分块数量不一致: %d != %d", len(embeddings), len(pieces)))
	}

	docChunks := make([]model.DocumentChunk, len(pieces))
	for i, content := range pieces {
		docChunks[i] = model.DocumentChunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  embeddings[i],
			Metadata: map[string]string{
				"document_name": doc.Name,
			},
		}
	}

	if err := s.index.Upsert(ctx, s.collection, docChunks); err != nil {
		return s.fail(ctx, doc, fmt.Errorf("写入向量库失败: %w", err))
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, model.DocumentStatusCompleted, len(docChunks), ""); err != nil {
		return err
	}

	// 处理结果事件是下游审计的依据，发布失败要暴露给消费方重试
	if err := s.publishProcessingEvent(ctx, event.TopicDocumentProcessed, doc, map[string]interface{}{
		"chunks": len(docChunks),
	}); err != nil {
		return fmt.Errorf("发布处理完成事件失败: %w", err)
	}

	s.logger.Info("文档处理完成",
		zap.String("documentId", doc.ID),
		zap.Int("chunks", len(docChunks)))
	return nil
}

// Delete 删除文档的向量、元数据和磁盘文件
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.index.DeleteByDocument(ctx, s.collection, doc.ID); err != nil {
		return fmt.Errorf("删除向量失败: %w", err)
	}
	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("删除文档文件失败",
				zap.String("filePath", doc.FilePath),
				zap.Error(err))
		}
	}

	s.logger.Info("文档已删除", zap.String("documentId", doc.ID))
	return nil
}

// Get 按 ID 读取文档
func (s *IngestService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// ListByUser 列出某用户的文档
func (s *IngestService) ListByUser(ctx context.Context, userID string) ([]*model.Document, error) {
	return s.documents.ListByUser(ctx, userID)
}

// fail 落 failed 状态并发布失败事件，返回原始错误
func (s *IngestService) fail(ctx context.Context, doc *model.Document, cause error) error {
	if err := s.documents.UpdateStatus(ctx, doc.ID, model.DocumentStatusFailed, 0, cause.Error()); err != nil {
		s.logger.Error("更新失败状态出错",
			zap.String("documentId", doc.ID),
			zap.Error(err))
	}

	// 失败场景里原始错误优先，事件发布问题只记日志
	if err := s.publishProcessingEvent(ctx, event.TopicDocumentFailed, doc, map[string]interface{}{
		"error": cause.Error(),
	}); err != nil {
		s.logger.Warn("处理失败事件发布失败", zap.Error(err))
	}

	s.logger.Error("文档处理失败",
		zap.String("documentId", doc.ID),
		zap.Error(cause))
	return cause
}

// publishProcessingEvent 发布处理结果事件
func (s *IngestService) publishProcessingEvent(ctx context.Context, topic string, doc *model.Document, extra map[string]interface{}) error {
	if s.publisher == nil {
		return nil
	}

	payload := map[string]interface{}{
		"documentId": doc.ID,
		"userId":     doc.UserID,
		"name":       doc.Name,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return s.publisher.Publish(ctx, topic, payload)
}
