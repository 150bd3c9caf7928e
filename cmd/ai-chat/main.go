package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/docassist/docassist-go/internal/client"
	"github.com/docassist/docassist-go/internal/config"
	"github.com/docassist/docassist-go/internal/event"
	"github.com/docassist/docassist-go/internal/handler"
	"github.com/docassist/docassist-go/internal/middleware"
	"github.com/docassist/docassist-go/internal/rag"
	"github.com/docassist/docassist-go/internal/repository"
	"github.com/docassist/docassist-go/internal/service"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"github.com/docassist/docassist-go/internal/vectorstore/chroma"
	"github.com/docassist/docassist-go/internal/vectorstore/memory"
	"github.com/docassist/docassist-go/internal/vectorstore/qdrant"
	"github.com/docassist/docassist-go/pkg/logger"
	redispkg "github.com/docassist/docassist-go/pkg/redis"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	cfg, err := config.LoadConfig("configs/ai-chat.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("ai-chat 服务启动中...")

	// Redis：提示词模板存储
	redisClient, err := redispkg.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
	}
	promptRepo := repository.NewPromptRepository(redisClient, zapLogger)

	// MongoDB：评估指标存储
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		zapLogger.Fatal("连接 MongoDB 失败", zap.Error(err))
	}
	database := cfg.Mongo.Database
	if database == "" {
		database = "audit_db"
	}
	evalRepo, err := repository.NewEvaluationRepository(ctx, mongoClient.Database(database), zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化评估仓储失败", zap.Error(err))
	}

	// Kafka：审计事件
	publisher := event.NewPublisher(cfg.Kafka.Brokers, zapLogger)
	defer publisher.Close()

	// OpenAI 客户端
	llmClient, err := client.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化 LLM 客户端失败", zap.Error(err))
	}
	embeddingClient, err := client.NewEmbeddingClient(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化 Embedding 客户端失败", zap.Error(err))
	}

	// 向量存储
	index, err := newVectorIndex(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化向量存储失败", zap.Error(err))
	}

	minScore := cfg.RAG.MinScore
	if minScore <= 0 {
		minScore = 0.5
	}
	temperature := cfg.RAG.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	retriever := rag.NewRetriever(index, minScore, zapLogger)
	chatService := service.NewChatService(
		llmClient, embeddingClient, retriever,
		publisher, evalRepo,
		cfg.RAG.TopK, temperature, zapLogger,
	)

	chatHandler := handler.NewChatHandler(chatService, promptRepo, evalRepo, cfg.RAG.DefaultSystemPrompt, zapLogger)
	promptHandler := handler.NewPromptHandler(promptRepo, zapLogger)
	wsHandler := handler.NewWebSocketHandler(chatService, cfg.RAG.DefaultSystemPrompt, zapLogger)

	r := gin.Default()
	r.Use(middleware.CORS())

	r.POST("/api/ai/chat", chatHandler.Chat)
	r.GET("/api/ai/metrics", chatHandler.Metrics)
	r.GET("/api/ai/prompts", promptHandler.List)
	r.POST("/api/ai/prompts", promptHandler.Create)
	r.DELETE("/api/ai/prompts/:id", promptHandler.Delete)
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/api/health", chatHandler.Health)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("ai-chat 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("vectordb", cfg.VectorDB.Provider))

	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("服务启动失败", zap.Error(err))
	}
}

// newVectorIndex 按配置选择向量存储实现
func newVectorIndex(cfg *config.Config, zapLogger *zap.Logger) (vectorstore.Index, error) {
	switch cfg.VectorDB.Provider {
	case "qdrant":
		return qdrant.NewStore(cfg.VectorDB.URL, cfg.VectorDB.APIKey, cfg.VectorDB.Collection, zapLogger), nil
	case "chroma":
		return chroma.NewStore(cfg.VectorDB.URL, cfg.VectorDB.Collection, zapLogger)
	case "memory", "":
		return memory.NewStore(zapLogger), nil
	default:
		return nil, fmt.Errorf("未知的向量存储类型: %s", cfg.VectorDB.Provider)
	}
}
