// Package pipeline 定义了文档摄取的核心流程：下载、提取、分块、向量化、写入向量存储。
package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"hackrx-go/internal/model"
	"hackrx-go/internal/repository"
	"hackrx-go/pkg/download"
	"hackrx-go/pkg/embedding"
	"hackrx-go/pkg/kafka"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/storage"
	"hackrx-go/pkg/tasks"
	"hackrx-go/pkg/vectorstore"
)

// Processor 封装了文档摄取的所有依赖和逻辑。
type Processor struct {
	fetcher      download.Fetcher
	extractor    Extractor
	chunk        ChunkFunc
	embedder     embedding.Embedder
	store        vectorstore.Store
	textCache    repository.TextCacheRepository
	docRepo      repository.DocumentRepository
	archive      storage.Archive
	publisher    kafka.Publisher
	modelVersion string
}

// Option 配置 Processor 的可选依赖。
type Option func(*Processor)

func WithTextCache(c repository.TextCacheRepository) Option {
	return func(p *Processor) { p.textCache = c }
}

func WithDocumentRepository(r repository.DocumentRepository) Option {
	return func(p *Processor) { p.docRepo = r }
}

func WithArchive(a storage.Archive) Option {
	return func(p *Processor) { p.archive = a }
}

func WithPublisher(pub kafka.Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

func WithModelVersion(v string) Option {
	return func(p *Processor) { p.modelVersion = v }
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	fetcher download.Fetcher,
	extractor Extractor,
	chunk ChunkFunc,
	embedder embedding.Embedder,
	store vectorstore.Store,
	opts ...Option,
) *Processor {
	p := &Processor{
		fetcher:   fetcher,
		extractor: extractor,
		chunk:     chunk,
		embedder:  embedder,
		store:     store,
		textCache: repository.NoopTextCacheRepository{},
		docRepo:   repository.NoopDocumentRepository{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest 摄取 documentRef 指向的文档并返回其指纹。任何一步失败都会中止，
// 返回带阶段信息的 *model.IngestionError，向量存储中不会留下该文档的部分分块。
// 同一文档重复摄取时总是重新分块与向量化。
func (p *Processor) Ingest(ctx context.Context, documentRef string) (string, error) {
	fingerprint := model.Fingerprint(documentRef)
	log.Infof("[Processor] 开始摄取文档, fingerprint: %s", fingerprint)

	chunkCount, err := p.ingest(ctx, fingerprint, documentRef)
	p.record(ctx, fingerprint, documentRef, chunkCount, err)
	if err != nil {
		log.Errorw("[Processor] 文档摄取失败", "fingerprint", fingerprint, "error", err)
		return fingerprint, err
	}

	if p.publisher != nil {
		event := tasks.DocumentIngestedEvent{
			Fingerprint:  fingerprint,
			SourceURL:    documentRef,
			ChunkCount:   chunkCount,
			ModelVersion: p.modelVersion,
			IngestedAt:   time.Now(),
		}
		if err := p.publisher.PublishIngested(ctx, event); err != nil {
			log.Warnf("[Processor] 发送摄取完成事件失败, fingerprint: %s, error: %v", fingerprint, err)
		}
	}

	log.Infof("[Processor] 文档摄取成功完成, fingerprint: %s, 分块数: %d", fingerprint, chunkCount)
	return fingerprint, nil
}

func (p *Processor) ingest(ctx context.Context, fingerprint, documentRef string) (int, error) {
	fail := func(stage string, err error) (int, error) {
		return 0, &model.IngestionError{Stage: stage, DocumentID: fingerprint, Err: err}
	}

	// 1. 获取文本：优先使用缓存，否则下载并提取
	text, err := p.loadText(ctx, fingerprint, documentRef)
	if err != nil {
		return 0, err
	}
	log.Infof("[Processor] 步骤2: 文本就绪, 内容长度: %d 字符", utf8.RuneCountInString(text))

	// 3. 文本切块
	chunks, err := p.chunk(text)
	if err != nil {
		return fail(model.StageChunk, err)
	}
	if len(chunks) == 0 {
		return fail(model.StageChunk, model.ErrEmptyDocument)
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 4. 全部分块向量化完成后才写入存储
	buffered := make([]model.Chunk, 0, len(chunks))
	for i, content := range chunks {
		if err := ctx.Err(); err != nil {
			return fail(model.StageEmbed, err)
		}
		vector, err := p.embedder.Embed(ctx, content)
		if err != nil {
			log.Errorw("[Processor] 分块向量化失败", "fingerprint", fingerprint, "chunk", i, "error", err)
			return fail(model.StageEmbed, fmt.Errorf("chunk %d: %w", i, err))
		}
		buffered = append(buffered, model.Chunk{DocumentID: fingerprint, Index: i, Text: content, Vector: vector})
	}
	log.Infof("[Processor] 步骤4: %d 个分块向量化完成", len(buffered))

	// 5. 整体发布到向量存储
	if err := p.store.Upsert(ctx, fingerprint, buffered); err != nil {
		return fail(model.StageStore, err)
	}
	log.Info("[Processor] 步骤5: 分块已写入向量存储")
	return len(buffered), nil
}

func (p *Processor) loadText(ctx context.Context, fingerprint, documentRef string) (string, error) {
	text, ok, err := p.textCache.Get(ctx, fingerprint)
	if err != nil {
		log.Warnf("[Processor] 读取文本缓存失败, fingerprint: %s, error: %v", fingerprint, err)
	}
	if ok && text != "" {
		log.Infof("[Processor] 命中文本缓存, 跳过下载与提取, fingerprint: %s", fingerprint)
		return text, nil
	}

	log.Info("[Processor] 步骤1: 下载文档")
	data, fileName, err := p.fetcher.Fetch(ctx, documentRef)
	if err != nil {
		return "", &model.IngestionError{Stage: model.StageDownload, DocumentID: fingerprint, Err: err}
	}
	log.Infof("[Processor] 步骤1: 文档下载成功, 大小: %d 字节, 文件名: %s", len(data), fileName)

	if p.archive != nil {
		if err := p.archive.Put(ctx, fingerprint, fileName, data); err != nil {
			log.Warnf("[Processor] 归档原始文档失败, fingerprint: %s, error: %v", fingerprint, err)
		}
	}

	log.Info("[Processor] 步骤2: 提取文本内容")
	text, err = p.extractor.Extract(ctx, data, fileName)
	if err != nil {
		return "", &model.IngestionError{Stage: model.StageExtract, DocumentID: fingerprint, Err: err}
	}

	if err := p.textCache.Set(ctx, fingerprint, text); err != nil {
		log.Warnf("[Processor] 写入文本缓存失败, fingerprint: %s, error: %v", fingerprint, err)
	}
	return text, nil
}

// record 把本次摄取结果写入摄取记录，写入失败不影响请求。
func (p *Processor) record(ctx context.Context, fingerprint, documentRef string, chunkCount int, ingestErr error) {
	rec := &model.DocumentRecord{
		Fingerprint:    fingerprint,
		SourceURL:      documentRef,
		ChunkCount:     chunkCount,
		Status:         model.IngestStatusCompleted,
		ModelVersion:   p.modelVersion,
		LastIngestedAt: time.Now(),
	}
	if ingestErr != nil {
		rec.Status = model.IngestStatusFailed
		rec.LastError = ingestErr.Error()
	}
	if err := p.docRepo.RecordIngestion(ctx, rec); err != nil {
		log.Warnf("[Processor] 保存摄取记录失败, fingerprint: %s, error: %v", fingerprint, err)
	}
}

// Status 返回文档最近一次摄取的记录，未启用 MySQL 或没有记录时返回 nil。
func (p *Processor) Status(ctx context.Context, fingerprint string) (*model.DocumentRecord, error) {
	return p.docRepo.FindByFingerprint(ctx, fingerprint)
}

// Evict 从向量存储、文本缓存与摄取记录中移除文档。
func (p *Processor) Evict(ctx context.Context, fingerprint string) error {
	if err := p.store.Delete(ctx, fingerprint); err != nil {
		return fmt.Errorf("删除向量存储中的分块失败: %w", err)
	}
	if err := p.textCache.Delete(ctx, fingerprint); err != nil {
		log.Warnf("[Processor] 删除文本缓存失败, fingerprint: %s, error: %v", fingerprint, err)
	}
	if err := p.docRepo.DeleteByFingerprint(ctx, fingerprint); err != nil {
		log.Warnf("[Processor] 删除摄取记录失败, fingerprint: %s, error: %v", fingerprint, err)
	}
	log.Infof("[Processor] 文档已移除, fingerprint: %s", fingerprint)
	return nil
}
