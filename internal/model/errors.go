package model

import (
	"errors"
	"fmt"
)

// 业务错误分类。调用方通过 errors.Is 判断类别，具体原因通过 %w 包装保留。
var (
	// ErrInvalidRequest 请求结构不合法（缺少字段、类型错误），属于客户端错误。
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDownload 文档下载失败。
	ErrDownload = errors.New("document download failed")
	// ErrInvalidDocumentRef 文档引用无法解析为可下载的地址。
	ErrInvalidDocumentRef = errors.New("invalid document reference")
	// ErrNotPDF 下载内容不是 PDF。
	ErrNotPDF = errors.New("document is not a valid PDF")

	// ErrExtraction 文本提取失败（格式损坏、加密或不支持）。
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmptyDocument 文档中没有可提取的文本。
	ErrEmptyDocument = errors.New("no extractable text in document")

	// ErrEmbeddingService 远程向量化服务失败（网络、超时、非成功响应）。
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrGenerationService 远程生成服务失败。
	ErrGenerationService = errors.New("generation service error")

	// ErrDocumentNotFound 没有该指纹对应的摄取记录。
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidParameter 分块、topK 或向量维度等内部参数错误。
	ErrInvalidParameter = errors.New("invalid parameter")
)

// 摄取阶段名称
const (
	StageDownload = "download"
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageStore    = "store"
)

// IngestionError 描述摄取流程在哪一步、哪个文档上失败。
type IngestionError struct {
	Stage      string
	DocumentID string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s (document %s): %v", e.Stage, e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// IsClientFault 判断错误是否由请求方提供的输入导致（应返回 4xx）。
func IsClientFault(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDocumentRef) ||
		errors.Is(err, ErrNotPDF) ||
		errors.Is(err, ErrEmptyDocument)
}
