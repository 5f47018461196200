// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TextCacheRepository 缓存文档提取后的文本，命中时摄取可跳过下载与提取。
type TextCacheRepository interface {
	Get(ctx context.Context, fingerprint string) (text string, ok bool, err error)
	Set(ctx context.Context, fingerprint, text string) error
	Delete(ctx context.Context, fingerprint string) error
}

type redisTextCacheRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewTextCacheRepository 创建一个新的 TextCacheRepository 实例，ttl <= 0 表示不过期。
func NewTextCacheRepository(redisClient *redis.Client, ttl time.Duration) TextCacheRepository {
	return &redisTextCacheRepository{redisClient: redisClient, ttl: ttl}
}

func textCacheKey(fingerprint string) string {
	return fmt.Sprintf("document:%s:text", fingerprint)
}

func (r *redisTextCacheRepository) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	text, err := r.redisClient.Get(ctx, textCacheKey(fingerprint)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached text: %w", err)
	}
	return text, true, nil
}

func (r *redisTextCacheRepository) Set(ctx context.Context, fingerprint, text string) error {
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.redisClient.Set(ctx, textCacheKey(fingerprint), text, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached text: %w", err)
	}
	return nil
}

func (r *redisTextCacheRepository) Delete(ctx context.Context, fingerprint string) error {
	return r.redisClient.Del(ctx, textCacheKey(fingerprint)).Err()
}

// NoopTextCacheRepository 在未配置 Redis 时使用，永远不命中。
type NoopTextCacheRepository struct{}

func (NoopTextCacheRepository) Get(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (NoopTextCacheRepository) Set(context.Context, string, string) error { return nil }

func (NoopTextCacheRepository) Delete(context.Context, string) error { return nil }
