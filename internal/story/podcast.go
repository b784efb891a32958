package story

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/extract"
	"github.com/iabetor/aistory/internal/llm"
	"github.com/iabetor/aistory/internal/logger"
)

// 播客主持人标识。
const (
	HostA = "A"
	HostB = "B"
)

// Turn 播客对话中的一轮发言。
type Turn struct {
	Host string `json:"host"`
	Text string `json:"text"`
}

// PodcastContent 生成播客讨论大纲。
func (g *Generator) PodcastContent(ctx context.Context, topic string) (string, error) {
	const op = "story.PodcastContent"
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errs.Validation(op, "话题不能为空")
	}
	return g.complete(ctx, op, llm.Options{},
		llm.System(podcastSystemPrompt),
		llm.User(fmt.Sprintf(podcastUserPrompt, topic)),
	)
}

// PodcastScript 把内容转换为 A/B 两位主持人的对话。
func (g *Generator) PodcastScript(ctx context.Context, content string) ([]Turn, error) {
	const op = "story.PodcastScript"
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation(op, "播客内容不能为空")
	}

	text, err := g.complete(ctx, op, llm.Options{},
		llm.System(podcastScriptSystemPrompt),
		llm.User(fmt.Sprintf(podcastScriptUserPrompt, content)),
	)
	if err != nil {
		return nil, err
	}

	turns, err := ParseTurns(text)
	if err != nil {
		logger.Warnf("[story] 播客脚本解析失败，原始输出: %.200s", text)
		return nil, err
	}
	return turns, nil
}

// Podcast 两步生成：先生成内容，再转换为对话。
func (g *Generator) Podcast(ctx context.Context, topic string) (string, []Turn, error) {
	content, err := g.PodcastContent(ctx, topic)
	if err != nil {
		return "", nil, err
	}
	turns, err := g.PodcastScript(ctx, content)
	if err != nil {
		return content, nil, err
	}
	logger.Infof("[story] 播客生成完成，话题: %s，共 %d 轮", topic, len(turns))
	return content, turns, nil
}

// ParseTurns 从模型输出中提取对话轮次。
// 接受裸数组，或某个字段为对话数组的对象（如 {"conversation":[...]}）。
// 对象里有多个数组字段时，按字段名排序取第一个能解析出对话的。
func ParseTurns(text string) ([]Turn, error) {
	const op = "story.ParseTurns"
	if _, ok := extract.JSON(text); !ok {
		return nil, errs.Parse(op, "输出中没有合法的 JSON", nil)
	}

	var turns []Turn
	if _, ok := extract.JSONWhere(text, func(raw json.RawMessage) bool {
		turns = decodeTurns(raw)
		return len(turns) > 0
	}); !ok {
		return nil, errs.Parse(op, "对话为空或结构无法识别", nil)
	}
	return turns, nil
}

func decodeTurns(raw json.RawMessage) []Turn {
	var entries []Turn
	if json.Unmarshal(raw, &entries) == nil {
		return normalizeTurns(entries)
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = nil
		if json.Unmarshal(obj[k], &entries) != nil {
			continue
		}
		if turns := normalizeTurns(entries); len(turns) > 0 {
			return turns
		}
	}
	return nil
}

func normalizeTurns(entries []Turn) []Turn {
	out := make([]Turn, 0, len(entries))
	prev := ""
	for _, e := range entries {
		text := stripMarkup(e.Text)
		if text == "" {
			continue
		}
		host := normalizeHost(e.Host)
		if host == "" {
			if prev == HostA {
				host = HostB
			} else {
				host = HostA
			}
		}
		out = append(out, Turn{Host: host, Text: text})
		prev = host
	}
	return out
}

// normalizeHost 把 "Host A"、"a"、"主持人B" 之类的写法归一为 A/B，无法识别时返回空串。
func normalizeHost(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "HOST")
	h = strings.TrimPrefix(h, "主持人")
	h = strings.Trim(h, " :：_-")
	switch h {
	case HostA, HostB:
		return h
	}
	return ""
}
