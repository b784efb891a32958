package story

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/extract"
	"github.com/iabetor/aistory/internal/llm"
	"github.com/iabetor/aistory/internal/logger"
)

// Kind 剧本段落类型。
type Kind string

const (
	Narration Kind = "narration"
	Dialogue  Kind = "dialogue"
)

// Section 剧本中的一段，顺序即播放顺序。
type Section struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"type"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text"`
}

// Script 把故事转换为旁白/对白段落。
func (g *Generator) Script(ctx context.Context, story string) ([]Section, error) {
	const op = "story.Script"
	story = strings.TrimSpace(story)
	if story == "" {
		return nil, errs.Validation(op, "故事内容不能为空")
	}

	text, err := g.complete(ctx, op, llm.Options{JSON: true},
		llm.System(scriptSystemPrompt),
		llm.User(fmt.Sprintf(scriptUserPrompt, story)),
	)
	if err != nil {
		return nil, err
	}

	sections, err := ParseScript(text)
	if err != nil {
		logger.Warnf("[story] 剧本解析失败，原始输出: %.200s", text)
		return nil, err
	}
	logger.Infof("[story] 剧本转换完成，共 %d 段", len(sections))
	return sections, nil
}

// ParseScript 从模型输出中提取剧本并规范化。
// 接受 {"scenes":[...]} 或裸数组两种形态，跳过解析不出段落的 JSON 片段。
func ParseScript(text string) ([]Section, error) {
	const op = "story.ParseScript"
	if _, ok := extract.JSON(text); !ok {
		return nil, errs.Parse(op, "输出中没有合法的 JSON", nil)
	}

	var sections []Section
	if _, ok := extract.JSONWhere(text, func(raw json.RawMessage) bool {
		sections = decodeSections(raw)
		return len(sections) > 0
	}); !ok {
		return nil, errs.Parse(op, "剧本为空或结构无法识别", nil)
	}
	return sections, nil
}

func decodeSections(raw json.RawMessage) []Section {
	var entries []rawSection
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Scenes []rawSection `json:"scenes"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		entries = wrapped.Scenes
	}
	return normalizeSections(entries)
}

type rawSection struct {
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	Character string `json:"character"`
	Text      string `json:"text"`
}

func normalizeSections(entries []rawSection) []Section {
	out := make([]Section, 0, len(entries))
	for _, e := range entries {
		text := stripMarkup(e.Text)
		if text == "" {
			continue
		}
		character := stripMarkup(e.Character)

		kind := Kind(strings.ToLower(strings.TrimSpace(e.Type)))
		if kind == "" {
			kind = Kind(strings.ToLower(strings.TrimSpace(e.Kind)))
		}
		if kind != Narration && kind != Dialogue {
			if character != "" {
				kind = Dialogue
			} else {
				kind = Narration
			}
		}
		if kind == Dialogue && character == "" {
			kind = Narration
		}
		if kind == Narration {
			character = ""
		}

		out = append(out, Section{
			ID:        strconv.Itoa(len(out) + 1),
			Kind:      kind,
			Character: character,
			Text:      text,
		})
	}
	return out
}

// stripMarkup 去掉强调用的星号。
func stripMarkup(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}
