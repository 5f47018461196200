package pipeline

import (
	"fmt"
	"strings"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
)

// ChunkFunc 把文本切分为有序的分块文本序列。
type ChunkFunc func(text string) ([]string, error)

// WordChunker 按词切分文本，窗口大小与重叠均以词为单位。
// 窗口起点依次为 0, w-o, 2(w-o)...，窗口覆盖到最后一个词即停止。
// 分块边界总是落在词之间，相邻分块恰好共享 overlap 个词（最后一对可能更多）。
func WordChunker(windowSize, overlap int) ChunkFunc {
	return func(text string) ([]string, error) {
		if windowSize <= 0 || overlap < 0 || windowSize <= overlap {
			return nil, fmt.Errorf("%w: window size %d, overlap %d", model.ErrInvalidParameter, windowSize, overlap)
		}

		words := strings.Fields(text)
		if len(words) == 0 {
			return []string{}, nil
		}

		step := windowSize - overlap
		chunks := make([]string, 0, len(words)/step+1)
		for start := 0; start < len(words); start += step {
			end := start + windowSize
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, strings.Join(words[start:end], " "))
			if end == len(words) {
				break
			}
		}
		return chunks, nil
	}
}

// ParagraphChunker 按空行切分文本，每个非空段落是一个分块，段落原文保持不变。
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		chunks := splitParagraphs(text)
		if chunks == nil {
			return []string{}, nil
		}
		return chunks, nil
	}
}

// NewChunker 根据 rag.chunk_strategy 选择切分策略。
func NewChunker(cfg config.RAGConfig) (ChunkFunc, error) {
	switch cfg.ChunkStrategy {
	case "", "words":
		if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkSize <= cfg.ChunkOverlap {
			return nil, fmt.Errorf("%w: chunk_size %d, chunk_overlap %d", model.ErrInvalidParameter, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		return WordChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "paragraphs":
		return ParagraphChunker(), nil
	default:
		return nil, fmt.Errorf("%w: unknown chunk strategy %q", model.ErrInvalidParameter, cfg.ChunkStrategy)
	}
}

// splitParagraphs 以空行为界切分段落，去掉首尾空白并丢弃空段落。
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
