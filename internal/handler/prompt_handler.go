package handler

import (
	"context"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromptStore 提示词模板存取接口
type PromptStore interface {
	Save(ctx context.Context, prompt *model.PromptTemplate) error
	GetByID(ctx context.Context, id string) (*model.PromptTemplate, error)
	List(ctx context.Context) ([]*model.PromptTemplate, error)
	Delete(ctx context.Context, id string) error
}

// PromptHandler 提示词模板处理器
type PromptHandler struct {
	prompts PromptStore
	logger  *zap.Logger
}

// NewPromptHandler 创建提示词处理器
func NewPromptHandler(prompts PromptStore, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

type createPromptRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	SystemPrompt       string            `json:"systemPrompt"`
	UserPromptTemplate string            `json:"userPromptTemplate"`
	Parameters         map[string]string `json:"parameters"`
}

// List 列出全部模板
func (h *PromptHandler) List(c *gin.Context) {
	prompts, err := h.prompts.List(c.Request.Context())
	if err != nil {
		h.logger.Error("读取提示词列表失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.JSON(200, gin.H{"success": true, "data": prompts})
}

// Create 创建模板
func (h *PromptHandler) Create(c *gin.Context) {
	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}
	if req.Name == "" {
		c.JSON(400, gin.H{"error": "模板名称不能为空"})
		return
	}

	now := time.Now()
	prompt := &model.PromptTemplate{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Description:        req.Description,
		SystemPrompt:       req.SystemPrompt,
		UserPromptTemplate: req.UserPromptTemplate,
		Parameters:         req.Parameters,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := h.prompts.Save(c.Request.Context(), prompt); err != nil {
		h.logger.Error("保存提示词模板失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}

	c.JSON(201, gin.H{"success": true, "data": prompt})
}

// Delete 删除模板
func (h *PromptHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	prompt, err := h.prompts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("读取提示词模板失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	if prompt == nil {
		c.JSON(404, gin.H{"error": "提示词模板不存在"})
		return
	}

	if err := h.prompts.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("删除提示词模板失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.JSON(200, gin.H{"success": true})
}
