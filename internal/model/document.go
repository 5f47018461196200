// Package model 包含了应用的数据模型定义。
package model

import (
	"crypto/md5"
	"encoding/hex"
)

// Chunk 是文档中一段按词对齐的连续文本，Index 从 0 开始，同时用作检索排序的平分依据。
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Vector     []float32
}

// ScoredChunk 是一次相似度查询的单条结果。
type ScoredChunk struct {
	Chunk
	Score float64
}

// Fingerprint 由文档引用（URL 或路径）确定性地生成文档标识，同一引用总是得到同一值。
func Fingerprint(sourceRef string) string {
	sum := md5.Sum([]byte(sourceRef))
	return hex.EncodeToString(sum[:])
}
