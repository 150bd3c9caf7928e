package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/docassist/docassist-go/internal/chunker"
	"github.com/docassist/docassist-go/internal/client"
	"github.com/docassist/docassist-go/internal/config"
	"github.com/docassist/docassist-go/internal/event"
	"github.com/docassist/docassist-go/internal/extractor"
	"github.com/docassist/docassist-go/internal/handler"
	"github.com/docassist/docassist-go/internal/middleware"
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

	cfg, err := config.LoadConfig("configs/vectorization.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("vectorization 服务启动中...")

	// Redis：文档元数据存储
	redisClient, err := redispkg.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
	}
	documentRepo := repository.NewDocumentRepository(redisClient, zapLogger)

	// Kafka：上传事件驱动处理
	publisher := event.NewPublisher(cfg.Kafka.Brokers, zapLogger)
	defer publisher.Close()

	embeddingClient, err := client.NewEmbeddingClient(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化 Embedding 客户端失败", zap.Error(err))
	}

	index, err := newVectorIndex(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化向量存储失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collection := cfg.VectorDB.Collection
	if collection == "" {
		collection = "documents"
	}
	dimension := cfg.VectorDB.Dimension
	if dimension <= 0 {
		dimension = 1536
	}
	if err := index.EnsureCollection(ctx, collection, dimension); err != nil {
		zapLogger.Fatal("初始化向量集合失败", zap.Error(err))
	}

	pdfExtractor := extractor.NewPDFExtractor(zapLogger)
	textChunker := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	ingestService := service.NewIngestService(
		documentRepo, pdfExtractor, textChunker,
		embeddingClient, index, publisher,
		collection, zapLogger,
	)

	// 消费上传事件，异步向量化
	consumer := event.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, event.TopicDocumentUploaded, zapLogger)
	defer consumer.Close()
	go func() {
		err := consumer.Run(ctx, func(ctx context.Context, payload map[string]interface{}) error {
			documentID, _ := payload["documentId"].(string)
			if documentID == "" {
				return fmt.Errorf("事件缺少 documentId 字段")
			}
			return ingestService.Process(ctx, documentID)
		})
		if err != nil {
			zapLogger.Error("事件消费退出", zap.Error(err))
		}
	}()

	uploadDir := cfg.Ingest.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	documentHandler := handler.NewDocumentHandler(ingestService, uploadDir, zapLogger)

	r := gin.Default()
	r.Use(middleware.CORS())

	r.POST("/api/ai/documents/upload", documentHandler.Upload)
	r.GET("/api/ai/documents", documentHandler.List)
	r.GET("/api/ai/documents/:id", documentHandler.Get)
	r.DELETE("/api/ai/documents/:id", documentHandler.Delete)
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": cfg.Server.Name})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("vectorization 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("vectordb", cfg.VectorDB.Provider),
		zap.String("collection", collection))

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
