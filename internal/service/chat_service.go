package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docassist/docassist-go/internal/event"
	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/rag"
	"github.com/docassist/docassist-go/internal/triage"
	"go.uber.org/zap"
)

// LLMClient 聊天补全接口
type LLMClient interface {
	Complete(ctx context.Context, messages []model.PromptMessage, temperature float64) (*model.CompletionResult, error)
}

// Embedder 查询向量化接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ChunkRetriever 相关分块检索接口
type ChunkRetriever interface {
	Retrieve(ctx context.Context, embedding []float64, limit int) []model.RetrievedChunk
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, eventName string, payload map[string]interface{}) error
}

// EvaluationRecorder 评估记录写入接口
type EvaluationRecorder interface {
	Create(ctx context.Context, eval *model.Evaluation) error
}

// ChatService 聊天服务，串起检索增强问答的完整链路
type ChatService struct {
	llm         LLMClient
	embedder    Embedder
	retriever   ChunkRetriever
	publisher   EventPublisher
	evaluations EvaluationRecorder
	topK        int
	temperature float64
	logger      *zap.Logger
}

// NewChatService 创建聊天服务
// publisher 和 evaluations 允许为 nil，对应的旁路能力缺失时跳过
func NewChatService(
	llm LLMClient,
	embedder Embedder,
	retriever ChunkRetriever,
	publisher EventPublisher,
	evaluations EvaluationRecorder,
	topK int,
	temperature float64,
	logger *zap.Logger,
) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		llm:         llm,
		embedder:    embedder,
		retriever:   retriever,
		publisher:   publisher,
		evaluations: evaluations,
		topK:        topK,
		temperature: temperature,
		logger:      logger,
	}
}

// SendMessage 处理一条用户消息，返回带来源归因的回答
func (s *ChatService) SendMessage(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	chunks := []model.RetrievedChunk{}
	var contextBlock rag.ContextBlock

	if req.UseRAG {
		// 寒暄类消息不走向量检索，省一次 embedding 调用
		if triage.Classify(req.UserMessage) == triage.Substantive {
			embedding, err := s.embedder.Embed(ctx, req.UserMessage)
			if err != nil {
				return nil, fmt.Errorf("查询向量化失败: %w", err)
			}
			chunks = s.retriever.Retrieve(ctx, embedding, s.topK)
		} else {
			s.logger.Debug("寒暄类消息，跳过检索", zap.String("userId", req.UserID))
		}
		contextBlock = rag.BuildContext(chunks)
	}

	messages := rag.BuildMessages(req.SystemPrompt, contextBlock, req.UserMessage, req.UserPromptTemplate)

	result, err := s.llm.Complete(ctx, messages, s.temperature)
	if err != nil {
		return nil, fmt.Errorf("生成回答失败: %w", err)
	}

	resp := rag.AssembleResponse(result, chunks, req.ConversationID, start)

	s.logger.Info("消息处理完成",
		zap.String("userId", req.UserID),
		zap.String("conversationId", resp.ConversationID),
		zap.Bool("useRag", req.UseRAG),
		zap.Int("sources", len(resp.Sources)),
		zap.Int64("latencyMs", resp.LatencyMs))

	s.recordSideEffects(ctx, req, resp)
	return resp, nil
}

// recordSideEffects 发审计事件并落评估记录
// 两者都是旁路，失败只记日志，不影响主流程
func (s *ChatService) recordSideEffects(ctx context.Context, req *model.ChatRequest, resp *model.ChatResponse) {
	if s.publisher != nil {
		payload := map[string]interface{}{
			"userId":         req.UserID,
			"conversationId": resp.ConversationID,
			"tokens":         resp.Tokens.Total,
			"latency":        resp.LatencyMs,
			"sources":        len(resp.Sources),
			"useRag":         req.UseRAG,
		}
		if req.PromptTemplateID != "" {
			payload["promptId"] = req.PromptTemplateID
		}
		if err := s.publisher.Publish(ctx, event.TopicChatMessageProcessed, payload); err != nil {
			s.logger.Warn("审计事件发布失败", zap.Error(err))
		}
	}

	if s.evaluations != nil {
		eval := &model.Evaluation{
			ConversationID:   resp.ConversationID,
			PromptTemplateID: req.PromptTemplateID,
			Metrics: model.EvaluationMetrics{
				Tokens:    resp.Tokens,
				LatencyMs: int(resp.LatencyMs),
				Sources:   len(resp.Sources),
			},
			Timestamp: time.Now(),
		}
		if err := s.evaluations.Create(ctx, eval); err != nil {
			s.logger.Warn("评估记录写入失败", zap.Error(err))
		}
	}
}
