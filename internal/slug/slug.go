// Package slug 把主题等用户输入转换为可用作目录名的 ASCII 串，汉字转为拼音。
package slug

import (
	"strings"
	"time"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// Fallback 输入中没有可用字符时返回的名称。
const Fallback = "story"

// DefaultMaxLen 默认的最大长度。
const DefaultMaxLen = 40

var pinyinArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	args.Style = pinyin.Normal
	return args
}()

// Make 生成 slug：小写字母数字，单词间用 '-' 连接，汉字逐字转为无声调拼音。
// maxLen <= 0 时使用 DefaultMaxLen。
func Make(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			if py := pinyin.LazyConvert(string(r), &pinyinArgs); len(py) > 0 && py[0] != "" {
				words = append(words, py[0])
			}
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			cur.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()

	out := strings.Join(words, "-")
	if len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	if out == "" {
		return Fallback
	}
	return out
}

// Stamp 把时间格式化为可作目录名的 ISO-8601 UTC 串，':' 和 '.' 替换为 '-'，
// 如 2025-03-01T08-30-00-123Z。
func Stamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}
