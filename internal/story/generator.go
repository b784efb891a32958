// Package story 封装故事、剧本、图像提示词和播客的文本生成。
//
// 每个操作都是一次 LLM 调用加上固定的提示词模板，不做重试。
package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/llm"
	"github.com/iabetor/aistory/internal/logger"
)

// Generator 基于 LLM 的文本生成器。
type Generator struct {
	llm llm.Provider
}

// NewGenerator 创建文本生成器。
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{llm: provider}
}

// Story 根据主题生成约 200 词的短篇故事。
func (g *Generator) Story(ctx context.Context, theme string) (string, error) {
	const op = "story.Story"
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return "", errs.Validation(op, "主题不能为空")
	}

	text, err := g.complete(ctx, op, llm.Options{},
		llm.System(storySystemPrompt),
		llm.User(fmt.Sprintf(storyUserPrompt, theme)),
	)
	if err != nil {
		return "", err
	}
	logger.Infof("[story] 已生成故事，主题: %s，长度: %d", theme, len([]rune(text)))
	return text, nil
}

// ImagePrompt 为一段场景文本生成图像提示词，storyContext 用于保持角色和场景一致。
func (g *Generator) ImagePrompt(ctx context.Context, text, storyContext string) (string, error) {
	const op = "story.ImagePrompt"
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.Validation(op, "场景文本不能为空")
	}
	storyContext = strings.TrimSpace(storyContext)
	if storyContext == "" {
		storyContext = noContext
	}

	prompt, err := g.complete(ctx, op, llm.Options{},
		llm.System(fmt.Sprintf(imagePromptSystemPrompt, storyContext)),
		llm.User(fmt.Sprintf(imagePromptUserPrompt, text)),
	)
	if err != nil {
		return "", err
	}
	return strings.Trim(prompt, "\"“” \n"), nil
}

// StoryContext 从多段文本中提取角色、场景、主题等关键元素。
func (g *Generator) StoryContext(ctx context.Context, texts []string) (string, error) {
	const op = "story.StoryContext"
	var parts []string
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", errs.Validation(op, "没有可分析的段落")
	}

	return g.complete(ctx, op, llm.Options{},
		llm.System(contextSystemPrompt),
		llm.User(fmt.Sprintf(contextUserPrompt, strings.Join(parts, "\n\n"))),
	)
}

// complete 调用 LLM 并去掉首尾空白。空回复视为 upstream 错误。
func (g *Generator) complete(ctx context.Context, op string, opts llm.Options, messages ...llm.Message) (string, error) {
	if g.llm == nil {
		return "", errs.Config(op, "未配置 LLM")
	}
	text, err := g.llm.Complete(ctx, messages, opts)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			return "", errs.Upstream(op, err)
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.Upstreamf(op, "模型没有返回内容")
	}
	return text, nil
}
