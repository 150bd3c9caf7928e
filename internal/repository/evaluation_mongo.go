package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docassist/docassist-go/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const evaluationCollection = "evaluations"

// EvaluationRepository 评估记录仓储，基于 MongoDB
type EvaluationRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewEvaluationRepository 创建评估仓储并建立索引
func NewEvaluationRepository(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*EvaluationRepository, error) {
	collection := db.Collection(evaluationCollection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("创建评估索引失败: %w", err)
	}

	return &EvaluationRepository{collection: collection, logger: logger}, nil
}

// Create 写入一条评估记录
func (r *EvaluationRepository) Create(ctx context.Context, eval *model.Evaluation) error {
	if eval.Timestamp.IsZero() {
		eval.Timestamp = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, eval); err != nil {
		return fmt.Errorf("写入评估记录失败: %w", err)
	}
	return nil
}

// ListByConversation 按会话读取评估记录，时间倒序
func (r *EvaluationRepository) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Evaluation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询评估记录失败: %w", err)
	}
	defer cursor.Close(ctx)

	var evals []*model.Evaluation
	if err := cursor.All(ctx, &evals); err != nil {
		return nil, fmt.Errorf("解析评估记录失败: %w", err)
	}
	return evals, nil
}

// Summary 聚合全量指标汇总
func (r *EvaluationRepository) Summary(ctx context.Context) (*model.MetricsSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalMessages", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalTokens", Value: bson.D{{Key: "$sum", Value: "$metrics.tokens.total"}}},
			{Key: "avgLatency", Value: bson.D{{Key: "$avg", Value: "$metrics.latencyMs"}}},
			{Key: "conversations", Value: bson.D{{Key: "$addToSet", Value: "$conversationId"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("聚合评估指标失败: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalMessages int      `bson:"totalMessages"`
		TotalTokens   int      `bson:"totalTokens"`
		AvgLatency    float64  `bson:"avgLatency"`
		Conversations []string `bson:"conversations"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("解析聚合结果失败: %w", err)
	}

	if len(results) == 0 {
		return &model.MetricsSummary{}, nil
	}

	res := results[0]
	return &model.MetricsSummary{
		TotalConversations: len(res.Conversations),
		TotalMessages:      res.TotalMessages,
		TotalTokens:        res.TotalTokens,
		AverageLatency:     res.AvgLatency,
	}, nil
}
