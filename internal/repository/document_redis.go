package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	documentKeyPrefix     = "document:"
	documentUserSetPrefix = "documents:user:"
	documentSetKey        = "documents"
)

// DocumentRepository 文档元数据仓储，基于 Redis Hash
type DocumentRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *redis.Client, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{client: client, logger: logger}
}

// Save 写入或覆盖文档元数据
func (r *DocumentRepository) Save(ctx context.Context, doc *model.Document) error {
	key := documentKeyPrefix + doc.ID
	fields := map[string]interface{}{
		"id":            doc.ID,
		"name":          doc.Name,
		"user_id":       doc.UserID,
		"status":        string(doc.Status),
		"chunks":        strconv.Itoa(doc.Chunks),
		"file_path":     doc.FilePath,
		"description":   doc.Description,
		"size":          strconv.FormatInt(doc.Size, 10),
		"error_message": doc.ErrorMessage,
		"created_at":    doc.CreatedAt.Format(time.RFC3339),
		"updated_at":    doc.UpdatedAt.Format(time.RFC3339),
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, documentSetKey, doc.ID)
	if doc.UserID != "" {
		pipe.SAdd(ctx, documentUserSetPrefix+doc.UserID, doc.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存文档元数据失败: %w", err)
	}
	return nil
}

// UpdateStatus 更新处理状态，失败时附带错误信息
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, chunks int, errorMessage string) error {
	key := documentKeyPrefix + id

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("查询文档失败: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("文档不存在: %s", id)
	}

	fields := map[string]interface{}{
		"status":        string(status),
		"chunks":        strconv.Itoa(chunks),
		"error_message": errorMessage,
		"updated_at":    time.Now().Format(time.RFC3339),
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("更新文档状态失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 读取文档，不存在返回 nil
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	data, err := r.client.HGetAll(ctx, documentKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("读取文档失败: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return r.fromFields(data), nil
}

// ListByUser 列出某用户的全部文档
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]*model.Document, error) {
	ids, err := r.client.SMembers(ctx, documentUserSetPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("读取用户文档列表失败: %w", err)
	}

	docs := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// 索引里残留的 ID，顺手清掉
			r.client.SRem(ctx, documentUserSetPrefix+userID, id)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete 删除文档元数据及索引
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, documentKeyPrefix+id)
	pipe.SRem(ctx, documentSetKey, id)
	if doc.UserID != "" {
		pipe.SRem(ctx, documentUserSetPrefix+doc.UserID, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("删除文档元数据失败: %w", err)
	}

	r.logger.Info("文档元数据已删除", zap.String("documentId", id))
	return nil
}

func (r *DocumentRepository) fromFields(data map[string]string) *model.Document {
	chunks, _ := strconv.Atoi(data["chunks"])
	size, _ := strconv.ParseInt(data["size"], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339, data["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339, data["updated_at"])

	return &model.Document{
		ID:           data["id"],
		Name:         data["name"],
		UserID:       data["user_id"],
		Status:       model.DocumentStatus(data["status"]),
		Chunks:       chunks,
		FilePath:     data["file_path"],
		Description:  data["description"],
		Size:         size,
		ErrorMessage: data["error_message"],
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}
