package pipeline

import (
	"context"
	"fmt"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/image"
	"github.com/iabetor/aistory/internal/logger"
)

// ImageSection 是批量配图的一段输入。
type ImageSection struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PromptWriter 提取故事上下文并为场景写提示词，由 story.Generator 实现。
type PromptWriter interface {
	StoryContext(ctx context.Context, texts []string) (string, error)
	ImagePrompt(ctx context.Context, text, storyContext string) (string, error)
}

// ImageBatch 为整篇故事批量配图：先分析上下文，再逐段写提示词，最后逐张生成。
// 单段失败只发送 section_error，不中断任务。
type ImageBatch struct {
	prompts PromptWriter
	images  image.Generator
}

// NewImageBatch 创建批量配图任务执行器。
func NewImageBatch(prompts PromptWriter, images image.Generator) *ImageBatch {
	return &ImageBatch{prompts: prompts, images: images}
}

type promptResult struct {
	sectionID string
	prompt    string
}

// Run 执行批量配图，返回成功生成的图片数。
func (b *ImageBatch) Run(ctx context.Context, sections []ImageSection, emit Emitter) (n int, err error) {
	const op = "pipeline.ImageBatch"
	defer func() {
		if p := recover(); p != nil {
			err = errs.Internal(op, fmt.Errorf("panic: %v", p))
			emit.Emit(Event{Type: EventError, Error: err.Error()})
		}
	}()

	if len(sections) == 0 {
		err = errs.Validation(op, "请提供故事段落")
		emit.Emit(Event{Type: EventError, Error: "请提供故事段落"})
		return 0, err
	}

	emit.Emit(Status("Analyzing story context..."))
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}
	storyContext, err := b.prompts.StoryContext(ctx, texts)
	if err != nil {
		emit.Emit(Event{Type: EventError, Error: err.Error()})
		return 0, err
	}

	emit.Emit(Status("Generating prompts..."))
	total := len(sections)
	var results []promptResult
	for i, s := range sections {
		emit.Emit(Event{
			Type:    EventPromptProgress,
			Current: i + 1,
			Total:   total,
			Message: fmt.Sprintf("Generating prompt %d/%d", i+1, total),
		})
		prompt, err := b.prompts.ImagePrompt(ctx, s.Text, storyContext)
		if err != nil {
			logger.Warnf("[pipeline] 段落 %s 提示词生成失败: %v", s.ID, err)
			emit.Emit(Event{Type: EventSectionError, SectionID: s.ID, Error: err.Error()})
			continue
		}
		results = append(results, promptResult{sectionID: s.ID, prompt: prompt})
	}

	emit.Emit(Status("Generating images..."))
	total = len(results)
	for i, r := range results {
		emit.Emit(Event{
			Type:    EventImageProgress,
			Current: i + 1,
			Total:   total,
			Message: fmt.Sprintf("Generating image %d/%d", i+1, total),
		})
		url, err := b.images.Generate(ctx, image.Request{Prompt: r.prompt})
		if err != nil {
			logger.Warnf("[pipeline] 段落 %s 图片生成失败: %v", r.sectionID, err)
			emit.Emit(Event{Type: EventSectionError, SectionID: r.sectionID, Error: err.Error()})
			continue
		}
		n++
		emit.Emit(Event{
			Type:      EventSectionDone,
			SectionID: r.sectionID,
			Prompt:    r.prompt,
			ImageURL:  url,
			Current:   i + 1,
			Total:     total,
		})
	}

	logger.Infof("[pipeline] 批量配图完成: %d/%d", n, len(sections))
	emit.Emit(Event{Type: EventComplete, Success: true, Message: "All images generated successfully"})
	return n, nil
}
