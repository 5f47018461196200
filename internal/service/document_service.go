// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"

	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"
)

// DocumentManager 查询或移除已摄取的文档，pipeline.Processor 实现了它。
type DocumentManager interface {
	Status(ctx context.Context, fingerprint string) (*model.DocumentRecord, error)
	Evict(ctx context.Context, fingerprint string) error
}

// DocumentService 接口定义了文档管理相关的业务操作。
type DocumentService interface {
	Status(ctx context.Context, fingerprint string) (*model.DocumentRecord, error)
	Evict(ctx context.Context, fingerprint string) error
}

type documentService struct {
	manager DocumentManager
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(manager DocumentManager) DocumentService {
	return &documentService{manager: manager}
}

// Status 没有摄取记录时返回 model.ErrDocumentNotFound。
func (s *documentService) Status(ctx context.Context, fingerprint string) (*model.DocumentRecord, error) {
	rec, err := s.manager.Status(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("查询摄取记录失败: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrDocumentNotFound, fingerprint)
	}
	return rec, nil
}

// Evict 移除文档的分块、缓存与摄取记录。对不存在的文档调用也会成功。
func (s *documentService) Evict(ctx context.Context, fingerprint string) error {
	log.Infof("[DocumentService] 移除文档, fingerprint: %s", fingerprint)
	return s.manager.Evict(ctx, fingerprint)
}
