package model

import "time"

// DocumentStatus 文档处理状态
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document 文档实体
// 生命周期：pending → processing → completed/failed
type Document struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	UserID       string         `json:"userId"`
	Status       DocumentStatus `json:"status"`
	Chunks       int            `json:"chunks"`
	FilePath     string         `json:"filePath,omitempty"`
	Description  string         `json:"description,omitempty"`
	Size         int64          `json:"size"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// DocumentChunk 文档分块
// 写入向量库后不再修改；重新摄取按 documentId 整体替换
type DocumentChunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"documentId"`
	ChunkIndex int               `json:"chunkIndex"`
	Content    string            `json:"content"`
	Embedding  []float64         `json:"-"`
	Metadata   map[string]string `json:"metadata"`
}
