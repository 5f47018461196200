package service

import (
	"context"
	"fmt"

	"hackrx-go/pkg/embedding"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/vectorstore"
)

// RetrievalService 把问题向量化后在文档范围内检索最相关的分块文本。
type RetrievalService interface {
	Retrieve(ctx context.Context, question, documentID string, topK int) ([]string, error)
}

type retrievalService struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	minScore float64
}

// NewRetrievalService 创建检索服务。minScore > 0 时过滤低分结果；若全部低于阈值则退回未过滤的排序结果。
func NewRetrievalService(embedder embedding.Embedder, store vectorstore.Store, minScore float64) RetrievalService {
	return &retrievalService{embedder: embedder, store: store, minScore: minScore}
}

func (s *retrievalService) Retrieve(ctx context.Context, question, documentID string, topK int) ([]string, error) {
	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	results, err := s.store.Query(ctx, documentID, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	texts := make([]string, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	add := func(text string) {
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		texts = append(texts, text)
	}

	for _, r := range results {
		if s.minScore > 0 && r.Score < s.minScore {
			continue
		}
		add(r.Text)
	}
	if len(texts) == 0 && len(results) > 0 {
		log.Debugf("[RetrievalService] 全部 %d 条结果低于阈值 %.2f, 使用未过滤结果", len(results), s.minScore)
		for _, r := range results {
			add(r.Text)
		}
	}
	return texts, nil
}
