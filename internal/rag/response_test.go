package rag

import (
	"strings"
	"testing"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAssembleResponse_FiltersLowScoreSources(t *testing.T) {
	result := &model.CompletionResult{
		Content: "respuesta",
		Tokens:  model.TokenUsage{Input: 10, Output: 5, Total: 15},
	}
	chunks := []model.RetrievedChunk{
		{DocumentID: "d1", Score: 0.9, Content: "alto", Metadata: map[string]string{"document_name": "a.pdf"}},
		{DocumentID: "d2", Score: 0.4, Content: "bajo"},
	}

	resp := AssembleResponse(result, chunks, "conv-1", time.Now())

	assert.Equal(t, "respuesta", resp.Message)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, 15, resp.Tokens.Total)
	assert.Len(t, resp.Sources, 1)
	assert.Equal(t, "d1", resp.Sources[0].DocumentID)
	assert.Equal(t, "a.pdf", resp.Sources[0].DocumentName)
	assert.Equal(t, 0.9, resp.Sources[0].Relevance)
}

func TestAssembleResponse_SourcesNeverNil(t *testing.T) {
	result := &model.CompletionResult{Content: "respuesta"}

	resp := AssembleResponse(result, nil, "conv-1", time.Now())

	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestAssembleResponse_GeneratesConversationID(t *testing.T) {
	result := &model.CompletionResult{Content: "respuesta"}

	resp := AssembleResponse(result, nil, "", time.Now())

	_, err := uuid.Parse(resp.ConversationID)
	assert.NoError(t, err)
}

func TestAssembleResponse_ExcerptTruncatedTo150Runes(t *testing.T) {
	long := strings.Repeat("ñ", 200)
	result := &model.CompletionResult{Content: "respuesta"}
	chunks := []model.RetrievedChunk{{Score: 0.8, Content: long}}

	resp := AssembleResponse(result, chunks, "conv-1", time.Now())

	assert.Len(t, resp.Sources, 1)
	assert.Equal(t, 150, len([]rune(resp.Sources[0].Excerpt)))
}

func TestAssembleResponse_LatencyNonNegative(t *testing.T) {
	result := &model.CompletionResult{Content: "respuesta"}

	start := time.Now().Add(-20 * time.Millisecond)
	resp := AssembleResponse(result, nil, "conv-1", start)

	assert.GreaterOrEqual(t, resp.LatencyMs, int64(20))
}
