package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler 事件处理函数，入参是反序列化后的事件体
type Handler func(ctx context.Context, payload map[string]interface{}) error

// Consumer Kafka 事件消费者，单主题消费组
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer 创建消费者
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Run 循环消费直到 context 取消
// 单条消息的处理失败只记日志，不中断消费
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("事件消费启动",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("groupId", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			c.logger.Error("事件反序列化失败",
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}

		if err := handler(ctx, payload); err != nil {
			c.logger.Error("事件处理失败",
				zap.String("topic", msg.Topic),
				zap.String("key", string(msg.Key)),
				zap.Error(err))
		}
	}
}

// Close 关闭底层 reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
