package model

import "time"

// Evaluation 单次对话的评估记录（异步写入 MongoDB）
type Evaluation struct {
	ConversationID   string            `bson:"conversationId"`
	PromptTemplateID string            `bson:"promptTemplateId,omitempty"`
	Metrics          EvaluationMetrics `bson:"metrics"`
	Timestamp        time.Time         `bson:"timestamp"`
}

// EvaluationMetrics 评估指标
type EvaluationMetrics struct {
	Tokens    TokenUsage `bson:"tokens"`
	LatencyMs int        `bson:"latencyMs"`
	Sources   int        `bson:"sources"`
}

// MetricsSummary 指标汇总
type MetricsSummary struct {
	TotalConversations int     `json:"totalConversations"`
	TotalMessages      int     `json:"totalMessages"`
	TotalTokens        int     `json:"totalTokens"`
	AverageLatency     float64 `json:"averageLatency"`
}
