package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/tika"
)

// Extractor 把原始文档字节转换为纯文本。
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

// PlainExtractor 直接把 UTF-8 文本文件作为文档内容，主要用于本地开发与测试。
type PlainExtractor struct{}

func (PlainExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: document is not valid UTF-8 text", model.ErrExtraction)
	}
	return string(data), nil
}

// normalizingExtractor 对底层提取结果做空白规整，并把没有文字的文档视为 ErrEmptyDocument。
type normalizingExtractor struct {
	inner Extractor
}

// NewExtractor 根据 extractor.type 构造提取器，返回值总是带有空白规整与空文档检查。
func NewExtractor(extractorCfg config.ExtractorConfig, tikaCfg config.TikaConfig) (Extractor, error) {
	var inner Extractor
	switch extractorCfg.Type {
	case "", "tika":
		inner = tika.NewClient(tikaCfg)
	case "plain":
		inner = PlainExtractor{}
	default:
		return nil, fmt.Errorf("未知的 extractor.type: %s", extractorCfg.Type)
	}
	return Normalizing(inner), nil
}

// Normalizing 包装任意 Extractor。
func Normalizing(inner Extractor) Extractor {
	return &normalizingExtractor{inner: inner}
}

func (e *normalizingExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	text, err := e.inner.Extract(ctx, data, fileName)
	if err != nil {
		return "", err
	}
	text = normalizeText(text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", model.ErrExtraction, model.ErrEmptyDocument)
	}
	return text, nil
}

var (
	inlineSpaces = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	extraBlanks  = regexp.MustCompile(`\n{3,}`)
)

// normalizeText 合并行内连续空白，去掉行首尾空白，多个空行合并为一个空行，保留段落结构。
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpaces.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = extraBlanks.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
