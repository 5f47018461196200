// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"hackrx-go/internal/config"
	"hackrx-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive 保存下载到的原始文档，便于事后排查提取问题。
type Archive interface {
	Put(ctx context.Context, fingerprint, fileName string, data []byte) error
}

// MinioArchive 把原始文档写入 MinIO 存储桶，对象名为 raw/<fingerprint>/<fileName>。
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinioArchive(ctx context.Context, cfg config.MinIOConfig) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}
	return &MinioArchive{client: client, bucket: cfg.BucketName}, nil
}

func (a *MinioArchive) Put(ctx context.Context, fingerprint, fileName string, data []byte) error {
	objectName := ObjectName(fingerprint, fileName)
	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", objectName, err)
	}
	return nil
}

// ObjectName 返回文档在存储桶中的对象名。
func ObjectName(fingerprint, fileName string) string {
	return fmt.Sprintf("raw/%s/%s", fingerprint, filepath.Base(fileName))
}
