package rag

import (
	"strings"

	"github.com/docassist/docassist-go/internal/model"
)

// DefaultSystemPrompt 未配置系统提示词时的兜底
const DefaultSystemPrompt = "Eres un asistente útil que responde preguntas basándote en el contexto proporcionado."

// userMessagePlaceholder 用户提示词模板中的占位符
const userMessagePlaceholder = "{message}"

// BuildMessages 组装发给 LLM 的消息序列
// 固定输出一条 system 加一条 user
func BuildMessages(systemPrompt string, contextBlock ContextBlock, userMessage, userTemplate string) []model.PromptMessage {
	base := systemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}

	system := base
	if contextBlock.Text != "" {
		system = base + "\n\n" + contextBlock.Text
	}

	user := userMessage
	if userTemplate != "" {
		formatted := strings.ReplaceAll(userTemplate, userMessagePlaceholder, userMessage)
		if formatted == userTemplate {
			// 模板没有占位符时直接拼接
			formatted = userTemplate + "\n\n" + userMessage
		}
		user = formatted
	}

	return []model.PromptMessage{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: user},
	}
}
