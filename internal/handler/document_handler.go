package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentHandler 文档管理处理器
type DocumentHandler struct {
	ingest    *service.IngestService
	uploadDir string
	logger    *zap.Logger
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(ingest *service.IngestService, uploadDir string, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingest:    ingest,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Upload 上传文档并登记待处理
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(400, gin.H{"error": "缺少上传文件"})
		return
	}

	userID := resolveUserID(c)
	description := c.PostForm("description")

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("创建上传目录失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}

	// 文件名加 UUID 前缀避免覆盖
	savePath := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		h.logger.Error("保存上传文件失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}

	doc, err := h.ingest.Upload(c.Request.Context(), userID, file.Filename, description, savePath, file.Size)
	if err != nil {
		os.Remove(savePath)
		if errors.Is(err, service.ErrUnsupportedFile) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("登记文档失败",
			zap.String("name", file.Filename),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}

	c.JSON(201, gin.H{"success": true, "data": doc})
}

// List 列出当前用户的文档
func (h *DocumentHandler) List(c *gin.Context) {
	userID := resolveUserID(c)

	docs, err := h.ingest.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("读取文档列表失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	c.JSON(200, gin.H{"success": true, "data": docs})
}

// Get 按 ID 读取文档
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.ingest.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("读取文档失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.JSON(200, gin.H{"success": true, "data": doc})
}

// Delete 删除文档及其向量
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("删除文档失败", zap.Error(err))
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.JSON(200, gin.H{"success": true})
}
