package vectorstore

import (
	"context"
	"sync"

	"hackrx-go/internal/model"
)

// MemoryStore 是进程内的向量存储，使用暴力余弦相似度检索。
// 每个文档的分块集合一经发布即不可变，Upsert 先在锁外构建新集合再整体替换。
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string][]model.Chunk
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		docs:      make(map[string][]model.Chunk),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, documentID string, chunks []model.Chunk) error {
	if err := ValidateChunks(documentID, chunks, s.dimension); err != nil {
		return err
	}

	staged := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		vec := make([]float32, len(c.Vector))
		copy(vec, c.Vector)
		staged[i] = model.Chunk{DocumentID: documentID, Index: c.Index, Text: c.Text, Vector: vec}
	}

	s.mu.Lock()
	s.docs[documentID] = staged
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, documentID string, vector []float32, topK int) ([]model.ScoredChunk, error) {
	if err := ValidateQuery(vector, topK, s.dimension); err != nil {
		return nil, err
	}

	s.mu.RLock()
	chunks := s.docs[documentID]
	s.mu.RUnlock()

	results := make([]model.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, model.ScoredChunk{Chunk: c, Score: CosineSimilarity(vector, c.Vector)})
	}
	SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	delete(s.docs, documentID)
	s.mu.Unlock()
	return nil
}

// Len 返回 documentID 当前发布的分块数量。
func (s *MemoryStore) Len(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[documentID])
}
