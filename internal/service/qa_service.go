package service

import (
	"context"
	"fmt"
	"strings"

	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

// DocumentIngestor 摄取一个文档并返回其指纹，pipeline.Processor 实现了它。
type DocumentIngestor interface {
	Ingest(ctx context.Context, documentRef string) (string, error)
}

// QAService 编排一次问答请求：先摄取文档，再并发回答每个问题，答案与问题一一对应。
type QAService interface {
	Run(ctx context.Context, req model.RunRequest) ([]string, error)
}

type qaService struct {
	ingestor    DocumentIngestor
	retriever   RetrievalService
	synthesizer Synthesizer
	topK        int
	concurrency int
}

// NewQAService 创建问答编排服务，concurrency <= 0 时按 1 处理。
func NewQAService(ingestor DocumentIngestor, retriever RetrievalService, synthesizer Synthesizer, topK, concurrency int) QAService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &qaService{
		ingestor:    ingestor,
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
		concurrency: concurrency,
	}
}

// Run 摄取失败时整个请求失败；单个问题失败（包括请求期限在回答途中到达）只会把该位置的答案替换为 model.ErrorAnswer。
func (s *qaService) Run(ctx context.Context, req model.RunRequest) ([]string, error) {
	if strings.TrimSpace(req.Documents) == "" {
		return nil, fmt.Errorf("%w: documents must be a non-empty string", model.ErrInvalidRequest)
	}
	if req.Questions == nil {
		return nil, fmt.Errorf("%w: questions must be an array", model.ErrInvalidRequest)
	}

	fingerprint, err := s.ingestor.Ingest(ctx, req.Documents)
	if err != nil {
		return nil, err
	}
	// 开始回答之前就已超时或取消，整个请求失败；回答过程中超时只影响未完成的问题
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Infof("[QAService] 开始回答问题, fingerprint: %s, 问题数: %d", fingerprint, len(req.Questions))
	answers := make([]string, len(req.Questions))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, question := range req.Questions {
		g.Go(func() error {
			answers[i] = s.answer(ctx, fingerprint, i, question)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warnw("[QAService] 请求在回答过程中超时, 未完成的问题使用占位答案", "fingerprint", fingerprint, "error", err)
	}
	return answers, nil
}

// answer 处理单个问题，任何错误（包括 panic）都转为占位答案。
func (s *qaService) answer(ctx context.Context, fingerprint string, index int, question string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("[QAService] 回答问题时发生 panic", "fingerprint", fingerprint, "question", index, "panic", r)
			answer = model.ErrorAnswer
		}
	}()

	if err := ctx.Err(); err != nil {
		log.Warnw("[QAService] 请求已结束, 跳过问题", "fingerprint", fingerprint, "question", index, "error", err)
		return model.ErrorAnswer
	}
	contexts, err := s.retriever.Retrieve(ctx, question, fingerprint, s.topK)
	if err != nil {
		log.Errorw("[QAService] 检索失败", "fingerprint", fingerprint, "question", index, "error", err)
		return model.ErrorAnswer
	}
	answer, err = s.synthesizer.Synthesize(ctx, question, contexts)
	if err != nil {
		log.Errorw("[QAService] 生成答案失败", "fingerprint", fingerprint, "question", index, "error", err)
		return model.ErrorAnswer
	}
	return answer
}
