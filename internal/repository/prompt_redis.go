package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	promptKeyPrefix = "prompt:"
	promptSetKey    = "prompts"
)

// PromptRepository 提示词模板仓储，基于 Redis Hash
type PromptRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPromptRepository 创建提示词仓储
func NewPromptRepository(client *redis.Client, logger *zap.Logger) *PromptRepository {
	return &PromptRepository{client: client, logger: logger}
}

// Save 写入或覆盖模板
func (r *PromptRepository) Save(ctx context.Context, prompt *model.PromptTemplate) error {
	key := promptKeyPrefix + prompt.ID
	parameters, err := json.Marshal(prompt.Parameters)
	if err != nil {
		return fmt.Errorf("序列化模板参数失败: %w", err)
	}
	fields := map[string]interface{}{
		"id":                   prompt.ID,
		"name":                 prompt.Name,
		"description":          prompt.Description,
		"system_prompt":        prompt.SystemPrompt,
		"user_prompt_template": prompt.UserPromptTemplate,
		"parameters":           string(parameters),
		"created_at":           prompt.CreatedAt.Format(time.RFC3339),
		"updated_at":           prompt.UpdatedAt.Format(time.RFC3339),
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, promptSetKey, prompt.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存提示词模板失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 读取模板，不存在返回 nil
func (r *PromptRepository) GetByID(ctx context.Context, id string) (*model.PromptTemplate, error) {
	data, err := r.client.HGetAll(ctx, promptKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("读取提示词模板失败: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var parameters map[string]string
	if raw := data["parameters"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &parameters); err != nil {
			r.logger.Warn("解析模板参数失败", zap.String("promptId", id), zap.Error(err))
		}
	}

	createdAt, _ := time.Parse(time.RFC3339, data["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339, data["updated_at"])
	return &model.PromptTemplate{
		ID:                 data["id"],
		Name:               data["name"],
		Description:        data["description"],
		SystemPrompt:       data["system_prompt"],
		UserPromptTemplate: data["user_prompt_template"],
		Parameters:         parameters,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

// List 列出全部模板
func (r *PromptRepository) List(ctx context.Context) ([]*model.PromptTemplate, error) {
	ids, err := r.client.SMembers(ctx, promptSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("读取提示词列表失败: %w", err)
	}

	prompts := make([]*model.PromptTemplate, 0, len(ids))
	for _, id := range ids {
		prompt, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if prompt == nil {
			r.client.SRem(ctx, promptSetKey, id)
			continue
		}
		prompts = append(prompts, prompt)
	}
	return prompts, nil
}

// Delete 删除模板
func (r *PromptRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, promptKeyPrefix+id)
	pipe.SRem(ctx, promptSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("删除提示词模板失败: %w", err)
	}

	r.logger.Info("提示词模板已删除", zap.String("promptId", id))
	return nil
}
