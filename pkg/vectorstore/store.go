// Package vectorstore 定义了分块向量的存储与按文档范围的相似度检索。
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"hackrx-go/internal/model"
)

// Store 持有 (分块, 向量) 记录，所有查询都限定在单个文档内。
type Store interface {
	// Upsert 用 chunks 整体替换 documentID 的分块集合，对并发查询而言要么看到旧集合，要么看到新集合。
	Upsert(ctx context.Context, documentID string, chunks []model.Chunk) error
	// Query 返回 documentID 下与 vector 最相似的至多 topK 个分块，按相似度降序、分块序号升序排列。
	Query(ctx context.Context, documentID string, vector []float32, topK int) ([]model.ScoredChunk, error)
	// Delete 移除 documentID 的全部分块，文档不存在时不报错。
	Delete(ctx context.Context, documentID string) error
}

// CosineSimilarity 计算 dot(a,b)/(|a||b|)，任一向量范数为 0 时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortResults 按分数降序排序，分数相同时按分块序号升序，保证结果确定。
func SortResults(results []model.ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
}

// ValidateChunks 检查向量维度与分块序号，任何不合法的分块都会使整批写入被拒绝。
func ValidateChunks(documentID string, chunks []model.Chunk, dimension int) error {
	seen := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != dimension {
			return fmt.Errorf("%w: chunk %d of %s has dimension %d, want %d", model.ErrInvalidParameter, c.Index, documentID, len(c.Vector), dimension)
		}
		if c.Index < 0 {
			return fmt.Errorf("%w: negative chunk index %d", model.ErrInvalidParameter, c.Index)
		}
		if _, dup := seen[c.Index]; dup {
			return fmt.Errorf("%w: duplicate chunk index %d", model.ErrInvalidParameter, c.Index)
		}
		seen[c.Index] = struct{}{}
	}
	return nil
}

// ValidateQuery 检查查询参数。
func ValidateQuery(vector []float32, topK, dimension int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", model.ErrInvalidParameter, topK)
	}
	if len(vector) != dimension {
		return fmt.Errorf("%w: query dimension %d, want %d", model.ErrInvalidParameter, len(vector), dimension)
	}
	return nil
}
