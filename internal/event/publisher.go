package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// 领域事件主题，事件名即主题名
const (
	TopicDocumentUploaded     = "document.uploaded"
	TopicDocumentProcessed    = "document.processed"
	TopicDocumentFailed       = "document.processing.failed"
	TopicChatMessageProcessed = "chat.message.processed"
)

// Publisher Kafka 事件发布器
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher 创建事件发布器
func NewPublisher(brokers []string, logger *zap.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer, logger: logger}
}

// Publish 发布事件，payload 会补充 eventType 和 timestamp 字段
// 消息 key 依次取 promptId、userId，都没有时用 unknown
func (p *Publisher) Publish(ctx context.Context, eventName string, payload map[string]interface{}) error {
	key := "unknown"
	if v, ok := payload["promptId"].(string); ok && v != "" {
		key = v
	} else if v, ok := payload["userId"].(string); ok && v != "" {
		key = v
	}

	enriched := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		enriched[k] = v
	}
	enriched["eventType"] = eventName
	enriched["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	value, err := json.Marshal(enriched)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := kafka.Message{
		Topic: eventName,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发布事件 %s 失败: %w", eventName, err)
	}

	p.logger.Debug("事件已发布",
		zap.String("event", eventName),
		zap.String("key", key))
	return nil
}

// Close 关闭底层 writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
