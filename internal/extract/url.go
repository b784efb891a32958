package extract

import "strings"

// ImageURLChain 从图像接口的 output 字段中提取图片地址，
// 顺序为：数组首元素、字符串本身、嵌套 output 数组、url 字段、image 字段。
var ImageURLChain = Chain[any, string]{
	{Name: "array-first", Try: arrayFirst},
	{Name: "string", Try: asString},
	{Name: "nested-output", Try: nestedOutput},
	{Name: "field-url", Try: field("url")},
	{Name: "field-image", Try: field("image")},
}

// ImageURL 使用 ImageURLChain 提取图片地址。
func ImageURL(output any) (string, bool) {
	u, _, ok := ImageURLChain.First(output)
	return u, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func arrayFirst(v any) (string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return "", false
	}
	return asString(arr[0])
}

func nestedOutput(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	return arrayFirst(m["output"])
}

func field(name string) func(any) (string, bool) {
	return func(v any) (string, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		return asString(m[name])
	}
}
