package handler

import (
	"context"
	"errors"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PromptSource 提示词模板读取接口
type PromptSource interface {
	GetByID(ctx context.Context, id string) (*model.PromptTemplate, error)
}

// MetricsSource 指标汇总读取接口
type MetricsSource interface {
	Summary(ctx context.Context) (*model.MetricsSummary, error)
}

// ChatHandler 聊天处理器
type ChatHandler struct {
	chatService         *service.ChatService
	prompts             PromptSource
	metrics             MetricsSource
	defaultSystemPrompt string
	logger              *zap.Logger
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(
	chatService *service.ChatService,
	prompts PromptSource,
	metrics MetricsSource,
	defaultSystemPrompt string,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		chatService:         chatService,
		prompts:             prompts,
		metrics:             metrics,
		defaultSystemPrompt: defaultSystemPrompt,
		logger:              logger,
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	PromptID       string `json:"promptId"`
	UseRAG         *bool  `json:"useRag"`
}

// Chat 处理一条聊天消息
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	userID := resolveUserID(c)

	// useRag 缺省开启
	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	systemPrompt := h.defaultSystemPrompt
	userTemplate := ""
	if req.PromptID != "" {
		prompt, err := h.prompts.GetByID(c.Request.Context(), req.PromptID)
		if err != nil {
			h.logger.Error("读取提示词模板失败", zap.Error(err))
			c.JSON(500, gin.H{"error": "internal error"})
			return
		}
		if prompt == nil {
			c.JSON(404, gin.H{"error": service.ErrPromptNotFound.Error()})
			return
		}
		systemPrompt = prompt.SystemPrompt
		userTemplate = prompt.UserPromptTemplate
	}

	resp, err := h.chatService.SendMessage(c.Request.Context(), &model.ChatRequest{
		UserMessage:        req.Message,
		ConversationID:     req.ConversationID,
		UserID:             userID,
		UseRAG:             useRAG,
		PromptTemplateID:   req.PromptID,
		SystemPrompt:       systemPrompt,
		UserPromptTemplate: userTemplate,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("处理聊天消息失败",
			zap.String("userId", userID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}

	c.JSON(200, gin.H{"success": true, "data": resp})
}

// Metrics 返回评估指标汇总
func (h *ChatHandler) Metrics(c *gin.Context) {
	summary, err := h.metrics.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("读取指标汇总失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.JSON(200, gin.H{"success": true, "data": summary})
}

// Health 健康检查
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "UP"})
}

// resolveUserID 从请求头取用户标识
// TODO: 接入网关的 JWT 校验后从 token 里取 userId
func resolveUserID(c *gin.Context) string {
	if uid := c.GetHeader("X-User-Id"); uid != "" {
		return uid
	}
	return "temp-user-id"
}
