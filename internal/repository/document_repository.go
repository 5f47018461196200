package repository

import (
	"context"
	"errors"

	"hackrx-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository 记录每个文档最近一次摄取的结果。
type DocumentRepository interface {
	RecordIngestion(ctx context.Context, record *model.DocumentRecord) error
	FindByFingerprint(ctx context.Context, fingerprint string) (*model.DocumentRecord, error)
	DeleteByFingerprint(ctx context.Context, fingerprint string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// RecordIngestion 按 fingerprint upsert 一条记录，重复摄取时累加 ingest_count。
func (r *documentRepository) RecordIngestion(ctx context.Context, record *model.DocumentRecord) error {
	record.IngestCount = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"source_url":       record.SourceURL,
			"chunk_count":      record.ChunkCount,
			"status":           record.Status,
			"last_error":       record.LastError,
			"model_version":    record.ModelVersion,
			"last_ingested_at": record.LastIngestedAt,
			"ingest_count":     gorm.Expr("ingest_count + 1"),
		}),
	}).Create(record).Error
}

// FindByFingerprint 查找文档记录，不存在时返回 (nil, nil)。
func (r *documentRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*model.DocumentRecord, error) {
	var record model.DocumentRecord
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *documentRepository) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Delete(&model.DocumentRecord{}).Error
}

// NoopDocumentRepository 在未配置 MySQL 时使用。
type NoopDocumentRepository struct{}

func (NoopDocumentRepository) RecordIngestion(context.Context, *model.DocumentRecord) error {
	return nil
}

func (NoopDocumentRepository) FindByFingerprint(context.Context, string) (*model.DocumentRecord, error) {
	return nil, nil
}

func (NoopDocumentRepository) DeleteByFingerprint(context.Context, string) error { return nil }
