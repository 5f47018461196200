// Package embedding 提供将文本映射为固定维度向量的能力。
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Embedder 定义了向量化能力。同一部署下所有实现返回的向量维度都等于 Dimension()。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// NewEmbedder 根据配置中的 provider 选择实现，未知 provider 返回错误。
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalEmbedder(cfg.Dimensions), nil
	case "openai":
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("未知的 embedding.provider: %s", cfg.Provider)
	}
}

// OpenAIEmbedder 调用 OpenAI 兼容的 Embedding API。
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	limiter    *rate.Limiter
}

// NewOpenAIEmbedder 创建远程 Embedding 客户端。RateLimit > 0 时按每秒请求数限流。
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	e := &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return e
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimensions }

// Embed 获取单段文本的向量。网络失败、超时、非成功状态码、空响应以及维度不符都视为 ErrEmbeddingService。
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: 等待限流失败: %v", model.ErrEmbeddingService, err)
		}
	}

	log.Debugf("[EmbeddingClient] 开始调用 Embedding API, model: %s, input_len: %d", e.model, len(text))
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			log.Errorf("[EmbeddingClient] Embedding API 返回错误状态码: %d", apiErr.HTTPStatusCode)
		} else {
			log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingService, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		log.Warnf("[EmbeddingClient] Embedding API 返回了空的向量数据")
		return nil, fmt.Errorf("%w: received empty embedding from api", model.ErrEmbeddingService)
	}
	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", model.ErrEmbeddingService, e.dimensions, len(vec))
	}
	return vec, nil
}
