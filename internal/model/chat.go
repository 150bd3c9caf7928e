package model

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest 聊天请求
type ChatRequest struct {
	UserMessage        string // 用户消息，不能为空
	ConversationID     string // 会话 ID，为空时自动生成
	UserID             string // 用户 ID
	UseRAG             bool   // 是否启用检索增强
	PromptTemplateID   string // 使用的提示词模板 ID，随审计事件和评估记录落盘
	SystemPrompt       string // 自定义系统提示词，为空时使用默认值
	UserPromptTemplate string // 用户消息模板，支持 {message} 占位符
}

// PromptMessage 发送给 LLM 的单条消息
type PromptMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// TokenUsage Token 用量
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// CompletionResult LLM 生成结果
type CompletionResult struct {
	Content string
	Tokens  TokenUsage
}

// RetrievedChunk 检索到的文本块
// Score 为归一化后的相似度（0-1，越高越相似），按降序排列
type RetrievedChunk struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Content    string            `json:"content"`
	DocumentID string            `json:"documentId,omitempty"`
	ChunkIndex int               `json:"chunkIndex"`
	Metadata   map[string]string `json:"metadata"`
}

// SourceAttribution 回答引用的来源
type SourceAttribution struct {
	DocumentID   string  `json:"documentId,omitempty"`
	DocumentName string  `json:"documentName"`
	Relevance    float64 `json:"relevance"`
	Excerpt      string  `json:"excerpt"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Message        string              `json:"message"`
	ConversationID string              `json:"conversationId"`
	Tokens         TokenUsage          `json:"tokens"`
	LatencyMs      int64               `json:"latency"`
	Sources        []SourceAttribution `json:"sources"`
}
