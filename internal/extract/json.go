package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// JSONChain 从模型输出中提取 JSON 对象或数组。
//
//  1. whole：整段文本就是合法 JSON
//  2. fenced：``` 代码块中的 JSON
//  3. balanced：第一个括号配对完整且合法的对象/数组子串
var JSONChain = Chain[string, json.RawMessage]{
	{Name: "whole", Try: wholeJSON},
	{Name: "fenced", Try: fencedJSON},
	{Name: "balanced", Try: firstBalancedJSON},
}

// JSON 使用 JSONChain 提取 JSON。
func JSON(text string) (json.RawMessage, bool) {
	raw, _, ok := JSONChain.First(text)
	return raw, ok
}

// JSONWhere 按 JSONChain 的顺序枚举所有候选（每个代码块、每个配对子串），
// 返回第一个被 accept 接受的。说明文字里的 "[1]" 之类不会挡住后面真正的结构。
func JSONWhere(text string, accept func(json.RawMessage) bool) (json.RawMessage, bool) {
	if raw, ok := wholeJSON(text); ok && accept(raw) {
		return raw, true
	}
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if raw, ok := wholeJSON(m[1]); ok && accept(raw) {
			return raw, true
		}
	}
	for _, raw := range balancedJSON(text) {
		if accept(raw) {
			return raw, true
		}
	}
	return nil, false
}

func wholeJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

func fencedJSON(text string) (json.RawMessage, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if raw, ok := wholeJSON(m[1]); ok {
			return raw, true
		}
	}
	return nil, false
}

func firstBalancedJSON(text string) (json.RawMessage, bool) {
	found := balancedJSON(text)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// balancedJSON 从左到右扫描每个 '{' 或 '['，找到与之配对的右括号
// （跳过字符串内部），收集所有合法子串。命中后从其末尾继续，不再进入内部。
func balancedJSON(text string) []json.RawMessage {
	var out []json.RawMessage
	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		end := matchBracket(text, start)
		if end < 0 {
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			out = append(out, json.RawMessage(candidate))
			start = end
		}
	}
	return out
}

// matchBracket 返回与 text[start] 配对的右括号下标，找不到返回 -1。
func matchBracket(text string, start int) int {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
