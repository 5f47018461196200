// Package tasks defines the messages exchanged over Kafka.
package tasks

import "time"

// DocumentIngestedEvent 在文档成功写入向量存储后发布。
type DocumentIngestedEvent struct {
	Fingerprint  string    `json:"fingerprint"`
	SourceURL    string    `json:"source_url"`
	ChunkCount   int       `json:"chunk_count"`
	ModelVersion string    `json:"model_version"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// IngestRequest 是预热摄取主题中的消息：提前摄取一个文档，之后的问答请求可直接命中文本缓存。
type IngestRequest struct {
	Documents string `json:"documents"`
}
