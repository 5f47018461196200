package embedding

import (
	"context"
	"strings"
)

// localScale 是本地向量化的归一化常数。
const localScale = 1000

// LocalEmbedder 是不依赖外部服务的确定性向量化实现：
// 文本转小写后按空白切词，每个词第 i 个字符的码点累加到第 i mod D 个桶中，最后整体除以 localScale。
// 它只保证结构上可用和可复现，并不具备语义能力。
type LocalEmbedder struct {
	dimensions int
}

func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	return &LocalEmbedder{dimensions: dimensions}
}

func (e *LocalEmbedder) Dimension() int { return e.dimensions }

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	buckets := make([]float64, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		i := 0
		for _, r := range word {
			buckets[i%e.dimensions] += float64(r)
			i++
		}
	}

	vec := make([]float32, e.dimensions)
	for i, v := range buckets {
		vec[i] = float32(v / localScale)
	}
	return vec, nil
}
