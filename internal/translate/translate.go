// Package translate 把剧本和播客脚本翻译成中文（或配置的目标语言）。
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/llm"
	"github.com/iabetor/aistory/internal/logger"
)

// Kind 待翻译内容的类型，决定保留哪些格式标签。
type Kind string

const (
	StoryScript Kind = "story-script"
	Podcast     Kind = "podcast"
)

// Translator 翻译接口。
type Translator interface {
	Translate(ctx context.Context, kind Kind, text string) (string, error)
}

// Config 翻译后端配置。
type Config struct {
	Provider  string // llm 或 tencent
	Target    string
	SecretID  string
	SecretKey string
	Region    string
}

// New 根据配置创建翻译器。provider 为 llm 时使用传入的 LLM。
func New(cfg Config, provider llm.Provider) (Translator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "llm":
		return NewLLMTranslator(provider, cfg.Target), nil
	case "tencent":
		return NewTencentTranslator(cfg.SecretID, cfg.SecretKey, cfg.Region, cfg.Target)
	default:
		return nil, fmt.Errorf("[translate] 不支持的翻译后端: %s", cfg.Provider)
	}
}

// 语言代码映射（用户友好 -> 语言代码）
var langCodeMap = map[string]string{
	"中文":   "zh",
	"汉语":   "zh",
	"英文":   "en",
	"英语":   "en",
	"日文":   "ja",
	"日语":   "ja",
	"韩文":   "ko",
	"韩语":   "ko",
	"法语":   "fr",
	"德语":   "de",
	"西班牙语": "es",
}

var langNames = map[string]string{
	"zh": "Chinese",
	"en": "English",
	"ja": "Japanese",
	"ko": "Korean",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
}

func langCode(target string) string {
	target = strings.TrimSpace(target)
	if code, ok := langCodeMap[target]; ok {
		return code
	}
	if target == "" {
		return "zh"
	}
	return strings.ToLower(target)
}

func langName(code string) string {
	if name, ok := langNames[code]; ok {
		return name
	}
	return code
}

const (
	scriptSystemPrompt = `Translate the story script to %[1]s. Keep the format:
1. Keep the [Narration] and [Dialogue] labels
2. Translate naturally and maintain the story flow
3. Return in this format:
[Narration]
%[1]s translation

[Dialogue]
Character Name:
%[1]s translation`
	scriptUserPrompt = "Translate this story script to %s:\n%s"

	podcastSystemPrompt = `Translate the podcast script to %[1]s. Keep the format:
1. Keep the Host A/B labels
2. Translate naturally and maintain the conversation style
3. Return in this format:
[Host A]
%[1]s translation

[Host B]
%[1]s translation`
	podcastUserPrompt = "Translate this podcast script to %s:\n%s"
)

// LLMTranslator 通过 LLM 翻译，保留剧本标签。
type LLMTranslator struct {
	llm    llm.Provider
	target string
}

// NewLLMTranslator 创建 LLM 翻译器。
func NewLLMTranslator(provider llm.Provider, target string) *LLMTranslator {
	return &LLMTranslator{llm: provider, target: langCode(target)}
}

// Translate 实现 Translator 接口。
func (t *LLMTranslator) Translate(ctx context.Context, kind Kind, text string) (string, error) {
	const op = "translate.llm"
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.Validation(op, "待翻译内容不能为空")
	}
	if t.llm == nil {
		return "", errs.Config(op, "未配置 LLM")
	}

	name := langName(t.target)
	var messages []llm.Message
	switch kind {
	case StoryScript:
		messages = []llm.Message{
			llm.System(fmt.Sprintf(scriptSystemPrompt, name)),
			llm.User(fmt.Sprintf(scriptUserPrompt, name, text)),
		}
	case Podcast:
		messages = []llm.Message{
			llm.System(fmt.Sprintf(podcastSystemPrompt, name)),
			llm.User(fmt.Sprintf(podcastUserPrompt, name, text)),
		}
	default:
		return "", errs.Validation(op, fmt.Sprintf("未知的翻译类型: %s", kind))
	}

	out, err := t.llm.Complete(ctx, messages, llm.Options{Temperature: 0.7, MaxTokens: 2000})
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			return "", errs.Upstream(op, err)
		}
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errs.Upstreamf(op, "翻译结果为空")
	}
	logger.Debugf("[translate] %s 翻译完成，%d -> %d 字符", kind, len([]rune(text)), len([]rune(out)))
	return out, nil
}
