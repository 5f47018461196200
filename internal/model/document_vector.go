package model

import "time"

// 摄取状态
const (
	IngestStatusCompleted = "completed"
	IngestStatusFailed    = "failed"
)

// DocumentRecord 对应于数据库中的 document_records 表，记录每个文档最近一次摄取的结果。
// 分块与向量本身不落库，只保存在向量存储中。
type DocumentRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Fingerprint    string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"fingerprint"`
	SourceURL      string    `gorm:"type:text;not null" json:"sourceUrl"`
	ChunkCount     int       `gorm:"not null;default:0" json:"chunkCount"`
	IngestCount    int       `gorm:"not null;default:0" json:"ingestCount"`
	Status         string    `gorm:"type:varchar(16);not null" json:"status"`
	LastError      string    `gorm:"type:text" json:"lastError"`
	ModelVersion   string    `gorm:"type:varchar(64)" json:"modelVersion"`
	LastIngestedAt time.Time `gorm:"not null" json:"lastIngestedAt"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DocumentRecord) TableName() string {
	return "document_records"
}
