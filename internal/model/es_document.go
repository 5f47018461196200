package model

// EsChunk 定义了存储在 Elasticsearch 中的分块文档结构。
type EsChunk struct {
	VectorID     string    `json:"vector_id"` // 唯一标识: docId_chunkIndex
	DocID        string    `json:"doc_id"`
	ChunkID      int       `json:"chunk_id"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version,omitempty"`
}
