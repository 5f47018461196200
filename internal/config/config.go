// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Download      DownloadConfig      `mapstructure:"download"`
	Extractor     ExtractorConfig     `mapstructure:"extractor"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	RAG           RAGConfig           `mapstructure:"rag"`
	VectorStore   VectorStoreConfig   `mapstructure:"vector_store"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Database      DatabaseConfig      `mapstructure:"database"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// AuthConfig 配置 Bearer Token 的校验方式。
// Mode 取值: static | bcrypt | jwt
type AuthConfig struct {
	Mode      string `mapstructure:"mode"`
	Token     string `mapstructure:"token"`
	TokenHash string `mapstructure:"token_hash"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DownloadConfig 存储远程文档下载相关的配置。
type DownloadConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxBytes   int64         `mapstructure:"max_bytes"`
	UserAgent  string        `mapstructure:"user_agent"`
	RequirePDF bool          `mapstructure:"require_pdf"`
}

// ExtractorConfig 选择文本提取实现: tika | plain
type ExtractorConfig struct {
	Type string `mapstructure:"type"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// Provider 取值: local | openai
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
}

// LLMConfig 存储大语言模型相关的配置。
// Provider 取值: local | openai
type LLMConfig struct {
	Provider        string              `mapstructure:"provider"`
	APIKey          string              `mapstructure:"api_key"`
	BaseURL         string              `mapstructure:"base_url"`
	Model           string              `mapstructure:"model"`
	Timeout         time.Duration       `mapstructure:"timeout"`
	FallbackToLocal bool                `mapstructure:"fallback_to_local"`
	Generation      LLMGenerationConfig `mapstructure:"generation"`
	Prompt          LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示（可选）。
type LLMPromptConfig struct {
	Rules string `mapstructure:"rules"`
}

// RAGConfig 控制分块、检索与并发。
type RAGConfig struct {
	ChunkStrategy string  `mapstructure:"chunk_strategy"`
	ChunkSize     int     `mapstructure:"chunk_size"`
	ChunkOverlap  int     `mapstructure:"chunk_overlap"`
	TopK          int     `mapstructure:"top_k"`
	MinScore      float64 `mapstructure:"min_score"`
	Concurrency   int     `mapstructure:"concurrency"`
}

// VectorStoreConfig 选择向量存储实现: memory | elasticsearch
type VectorStoreConfig struct {
	Type string `mapstructure:"type"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置，DSN 为空时不记录摄取历史。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置，Addr 为空时不缓存提取文本。
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	TextCacheTTL time.Duration `mapstructure:"text_cache_ttl"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，Endpoint 为空时不归档原始文档。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置，Brokers 为空时不发送摄取事件。
// IngestTopic 非空时启动消费者，按消息预先摄取文档。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	IngestTopic string `mapstructure:"ingest_topic"`
	GroupID     string `mapstructure:"group_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 120*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.mode", "static")

	v.SetDefault("download.timeout", 30*time.Second)
	v.SetDefault("download.max_bytes", 50<<20)
	v.SetDefault("download.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("download.require_pdf", false)

	v.SetDefault("extractor.type", "tika")
	v.SetDefault("tika.server_url", "http://localhost:9998")
	v.SetDefault("tika.timeout", 60*time.Second)

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("llm.provider", "local")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "mixtral-8x7b-32768")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.generation.temperature", 0.2)
	v.SetDefault("llm.generation.top_p", 1.0)
	v.SetDefault("llm.generation.max_tokens", 500)

	v.SetDefault("rag.chunk_size", 200)
	v.SetDefault("rag.chunk_overlap", 40)
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.min_score", 0.0)
	v.SetDefault("rag.concurrency", 4)

	v.SetDefault("vector_store.type", "memory")
	v.SetDefault("elasticsearch.index_name", "hackrx_chunks")

	v.SetDefault("database.redis.text_cache_ttl", 24*time.Hour)
	v.SetDefault("minio.bucket_name", "hackrx-documents")
	v.SetDefault("kafka.topic", "hackrx-document-ingested")
	v.SetDefault("kafka.group_id", "hackrx-go-ingestor")

	// 没有默认值的键也需要注册，AutomaticEnv 才能在 Unmarshal 时覆盖它们
	for _, key := range []string{
		"log.output_path",
		"auth.token", "auth.token_hash", "auth.jwt_secret",
		"embedding.api_key", "embedding.rate_limit",
		"llm.api_key", "llm.fallback_to_local", "llm.prompt.rules",
		"rag.chunk_strategy",
		"elasticsearch.addresses", "elasticsearch.username", "elasticsearch.password",
		"database.mysql.dsn", "database.redis.addr", "database.redis.password", "database.redis.db",
		"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.use_ssl",
		"kafka.brokers", "kafka.ingest_topic",
	} {
		if !v.IsSet(key) {
			v.SetDefault(key, nil)
		}
	}
}

// Load 读取配置文件（可为空路径，仅使用默认值与环境变量），并做基本校验。
// 环境变量以 HACKRX_ 为前缀，例如 HACKRX_AUTH_TOKEN 覆盖 auth.token。
func Load(configPath string) (*Config, error) {
	// .env 文件是可选的
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("HACKRX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验分块与检索参数，避免运行期才暴露配置错误。
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return errors.New("rag.chunk_size 必须为正数")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap 必须满足 0 <= overlap < chunk_size, 当前 overlap=%d chunk_size=%d", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 {
		return errors.New("rag.top_k 必须为正数")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions 必须为正数")
	}
	if c.RAG.ChunkStrategy == "" {
		c.RAG.ChunkStrategy = DefaultChunkStrategy(c.LLM.Provider)
	}
	switch c.RAG.ChunkStrategy {
	case "words", "paragraphs":
	default:
		return fmt.Errorf("未知的 rag.chunk_strategy: %s", c.RAG.ChunkStrategy)
	}
	switch c.Auth.Mode {
	case "static":
		if c.Auth.Token == "" {
			return errors.New("auth.mode=static 需要配置 auth.token")
		}
	case "bcrypt":
		if c.Auth.TokenHash == "" {
			return errors.New("auth.mode=bcrypt 需要配置 auth.token_hash")
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.mode=jwt 需要配置 auth.jwt_secret")
		}
	default:
		return fmt.Errorf("未知的 auth.mode: %s", c.Auth.Mode)
	}
	return nil
}

// DefaultChunkStrategy 返回未配置 rag.chunk_strategy 时使用的切分策略。
// 本地答案策略按段落原样返回答案，需要分块保留段落边界；大模型则使用固定词窗。
func DefaultChunkStrategy(llmProvider string) string {
	if llmProvider == "" || llmProvider == "local" {
		return "paragraphs"
	}
	return "words"
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
