// Package app 按配置组装问答流水线，供 HTTP 服务与命令行工具共用。
package app

import (
	"context"
	"fmt"

	"hackrx-go/internal/config"
	"hackrx-go/internal/pipeline"
	"hackrx-go/internal/repository"
	"hackrx-go/internal/service"
	"hackrx-go/pkg/database"
	"hackrx-go/pkg/download"
	"hackrx-go/pkg/embedding"
	"hackrx-go/pkg/es"
	"hackrx-go/pkg/kafka"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/storage"
	"hackrx-go/pkg/token"
	"hackrx-go/pkg/vectorstore"
)

// App 持有组装好的组件以及需要在退出时释放的资源。
type App struct {
	Config    *config.Config
	Processor *pipeline.Processor
	QA        service.QAService
	Documents service.DocumentService
	Verifier  token.Verifier

	closers []func() error
}

// Option 调整 App 的组装方式。
type Option func(*options)

type options struct {
	localFiles bool
}

// WithLocalFiles 允许文档引用为本地文件路径，只供命令行工具使用。
func WithLocalFiles() Option {
	return func(o *options) { o.localFiles = true }
}

// New 根据配置创建 App。可选后端（Redis、MySQL、MinIO、Kafka）在地址为空时不启用。
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	extractor, err := pipeline.NewExtractor(cfg.Extractor, cfg.Tika)
	if err != nil {
		return nil, err
	}
	chunk, err := pipeline.NewChunker(cfg.RAG)
	if err != nil {
		return nil, err
	}
	modelVersion := ModelVersion(cfg.Embedding)
	store, err := newStore(cfg, embedder.Dimension(), modelVersion)
	if err != nil {
		return nil, err
	}
	synthesizer, err := service.NewSynthesizer(cfg.LLM)
	if err != nil {
		return nil, err
	}

	processorOpts := []pipeline.Option{pipeline.WithModelVersion(modelVersion)}
	optional, err := a.optionalBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	processorOpts = append(processorOpts, optional...)

	var fetcher download.Fetcher = download.NewHTTPFetcher(cfg.Download)
	if o.localFiles {
		fetcher = &download.AutoFetcher{
			HTTP: download.NewHTTPFetcher(cfg.Download),
			File: download.NewFileFetcher(cfg.Download.MaxBytes),
		}
	}
	a.Processor = pipeline.NewProcessor(fetcher, extractor, chunk, embedder, store, processorOpts...)
	retriever := service.NewRetrievalService(embedder, store, cfg.RAG.MinScore)
	a.QA = service.NewQAService(a.Processor, retriever, synthesizer, cfg.RAG.TopK, cfg.RAG.Concurrency)
	a.Documents = service.NewDocumentService(a.Processor)

	if a.Verifier, err = token.NewVerifier(cfg.Auth); err != nil {
		return nil, err
	}

	log.Infow("问答流水线初始化完成",
		"extractor", cfg.Extractor.Type,
		"embedding", modelVersion,
		"vector_store", cfg.VectorStore.Type,
		"llm", cfg.LLM.Provider,
	)
	ok = true
	return a, nil
}

func newStore(cfg *config.Config, dimension int, modelVersion string) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "", "memory":
		return vectorstore.NewMemoryStore(dimension), nil
	case "elasticsearch":
		return es.NewStore(cfg.Elasticsearch, dimension, modelVersion)
	default:
		return nil, fmt.Errorf("未知的 vector_store.type: %s", cfg.VectorStore.Type)
	}
}

func (a *App) optionalBackends(ctx context.Context, cfg *config.Config) ([]pipeline.Option, error) {
	var opts []pipeline.Option

	if cfg.Database.Redis.Addr != "" {
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		opts = append(opts, pipeline.WithTextCache(repository.NewTextCacheRepository(rdb, cfg.Database.Redis.TextCacheTTL)))
	}

	if cfg.Database.MySQL.DSN != "" {
		db, err := database.InitMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		opts = append(opts, pipeline.WithDocumentRepository(repository.NewDocumentRepository(db)))
	}

	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewMinioArchive(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithArchive(archive))
	}

	if cfg.Kafka.Brokers != "" && cfg.Kafka.Topic != "" {
		pub := kafka.NewPublisher(cfg.Kafka)
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, pipeline.WithPublisher(pub))
	}
	return opts, nil
}

// StartConsumer 在配置了预热主题时于后台消费摄取请求，ctx 取消后退出。
func (a *App) StartConsumer(ctx context.Context) {
	kcfg := a.Config.Kafka
	if kcfg.Brokers == "" || kcfg.IngestTopic == "" {
		return
	}
	go kafka.StartConsumer(ctx, kcfg, a.Processor)
}

// Close 按创建的逆序释放资源。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("释放资源失败", err)
		}
	}
	a.closers = nil
}

// ModelVersion 标识生成向量所用的模型，写入 Elasticsearch 文档与摄取记录。
func ModelVersion(cfg config.EmbeddingConfig) string {
	if cfg.Provider == "openai" {
		return fmt.Sprintf("openai:%s:%d", cfg.Model, cfg.Dimensions)
	}
	return fmt.Sprintf("local:%d", cfg.Dimensions)
}
