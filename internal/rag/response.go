package rag

import (
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/google/uuid"
)

// sourceScoreThreshold 来源归因的最低相似度
const sourceScoreThreshold = 0.5

// excerptMaxRunes 来源摘录的最大长度（按字符计）
const excerptMaxRunes = 150

// AssembleResponse 组装对外的聊天响应
// sources 永远非 nil，空结果序列化为 [] 而不是 null
func AssembleResponse(result *model.CompletionResult, chunks []model.RetrievedChunk, conversationID string, start time.Time) *model.ChatResponse {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	sources := []model.SourceAttribution{}
	for _, chunk := range chunks {
		if chunk.Score < sourceScoreThreshold {
			continue
		}
		sources = append(sources, model.SourceAttribution{
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.Metadata["document_name"],
			Relevance:    chunk.Score,
			Excerpt:      truncateRunes(chunk.Content, excerptMaxRunes),
		})
	}

	return &model.ChatResponse{
		Message:        result.Content,
		ConversationID: conversationID,
		Tokens:         result.Tokens,
		LatencyMs:      time.Since(start).Milliseconds(),
		Sources:        sources,
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
