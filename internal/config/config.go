package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	VectorDB VectorDBConfig `yaml:"vectordb"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	RAG      RAGConfig      `yaml:"rag"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MongoConfig MongoDB 配置（评估指标存储）
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// KafkaConfig Kafka 配置（领域事件）
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"groupId"`
}

// VectorDBConfig 向量数据库配置
// Provider 可选 qdrant、chroma、memory
type VectorDBConfig struct {
	Provider   string `yaml:"provider"`
	URL        string `yaml:"url"`
	APIKey     string `yaml:"apiKey"`
	Collection string `yaml:"collection"`
	Dimension  int    `yaml:"dimension"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embeddingModel"`
}

// RAGConfig 检索增强生成配置
type RAGConfig struct {
	TopK                int     `yaml:"topK"`
	MinScore            float64 `yaml:"minScore"`
	Temperature         float64 `yaml:"temperature"`
	DefaultSystemPrompt string  `yaml:"defaultSystemPrompt"`
}

// IngestConfig 文档摄取配置
type IngestConfig struct {
	UploadDir    string `yaml:"uploadDir"`
	ChunkSize    int    `yaml:"chunkSize"`
	ChunkOverlap int    `yaml:"chunkOverlap"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadConfig 加载配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// API Key 允许通过环境变量注入，避免写入配置文件
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}
