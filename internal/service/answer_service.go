package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/llm"
	"hackrx-go/pkg/log"
)

// Synthesizer 根据问题与检索到的上下文生成答案，上下文中找不到答案时返回 model.NotFoundAnswer。
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, contexts []string) (string, error)
}

// NewSynthesizer 根据 llm.provider 选择实现。
func NewSynthesizer(cfg config.LLMConfig) (Synthesizer, error) {
	switch cfg.Provider {
	case "", "local":
		return LexicalSynthesizer{}, nil
	case "openai":
		var fallback Synthesizer
		if cfg.FallbackToLocal {
			fallback = LexicalSynthesizer{}
		}
		return NewGenerativeSynthesizer(llm.NewClient(cfg), llm.ParamsFromConfig(cfg.Generation), cfg.Prompt.Rules, fallback), nil
	default:
		return nil, fmt.Errorf("未知的 llm.provider: %s", cfg.Provider)
	}
}

// LexicalSynthesizer 不依赖外部服务：选出与问题共享关键词最多的段落并原样返回。
type LexicalSynthesizer struct{}

// minKeywordLen 以下长度的词（如 the, is, for）不参与打分。
const minKeywordLen = 3

func (LexicalSynthesizer) Synthesize(_ context.Context, question string, contexts []string) (string, error) {
	keywords := questionKeywords(question)
	if len(keywords) == 0 {
		return model.NotFoundAnswer, nil
	}

	best, bestScore := "", 0
	for _, paragraph := range strings.Split(strings.Join(contexts, "\n\n"), "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		lower := strings.ToLower(paragraph)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		// 严格大于：同分时保留先出现的段落
		if score > bestScore {
			best, bestScore = paragraph, score
		}
	}

	if bestScore == 0 {
		return model.NotFoundAnswer, nil
	}
	return best, nil
}

// questionKeywords 提取问题中长度大于 3 的字母数字串并转为小写，保持出现顺序。
// 重复出现的词保留，每次出现都单独计分。
func questionKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minKeywordLen {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

const notFoundRule = `If the information is not available in the context, reply exactly: "` + model.NotFoundAnswer + `"`

const defaultRules = `You are a helpful assistant that answers questions about an insurance policy document.
Answer the question using only the information from the provided context.
` + notFoundRule

// GenerativeSynthesizer 把上下文与问题交给大模型生成答案。
type GenerativeSynthesizer struct {
	client   llm.Client
	gen      *llm.GenerationParams
	rules    string
	fallback Synthesizer
}

// NewGenerativeSynthesizer fallback 非空时，生成失败会改用 fallback 回答。
func NewGenerativeSynthesizer(client llm.Client, gen *llm.GenerationParams, rules string, fallback Synthesizer) *GenerativeSynthesizer {
	rules = strings.TrimSpace(rules)
	if rules == "" {
		rules = defaultRules
	}
	// 自定义规则也必须约定找不到答案时的固定回复
	if !strings.Contains(rules, model.NotFoundAnswer) {
		rules += "\n" + notFoundRule
	}
	return &GenerativeSynthesizer{client: client, gen: gen, rules: rules, fallback: fallback}
}

func (s *GenerativeSynthesizer) Synthesize(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return model.NotFoundAnswer, nil
	}

	answer, err := s.client.Complete(ctx, s.buildMessages(question, contexts), s.gen)
	if err == nil && answer != "" {
		return answer, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: empty answer", model.ErrGenerationService)
	}
	if s.fallback != nil {
		log.Warnf("[AnswerService] 生成服务失败, 改用本地策略: %v", err)
		return s.fallback.Synthesize(ctx, question, contexts)
	}
	return "", err
}

func (s *GenerativeSynthesizer) buildMessages(question string, contexts []string) []llm.Message {
	var user strings.Builder
	user.WriteString("Context:\n")
	user.WriteString(strings.Join(contexts, "\n\n"))
	user.WriteString("\n\nQuestion: ")
	user.WriteString(question)
	user.WriteString("\n\nAnswer:")
	return []llm.Message{
		{Role: "system", Content: s.rules},
		{Role: "user", Content: user.String()},
	}
}
