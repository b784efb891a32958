// Package extract 实现"按顺序尝试、首个命中即返回"的响应提取策略链。
//
// 模型返回的内容形态并不稳定：JSON 可能夹在说明文字里，
// 图像接口可能返回字符串、数组或嵌套对象。每种形态对应一个
// 具名策略，策略顺序即回退顺序，可以单独测试。
package extract

// Strategy 是一个具名的提取策略。
type Strategy[In, Out any] struct {
	Name string
	Try  func(In) (Out, bool)
}

// Chain 是有序的策略列表。
type Chain[In, Out any] []Strategy[In, Out]

// First 依次执行策略，返回第一个成功的结果及命中的策略名。
func (c Chain[In, Out]) First(in In) (Out, string, bool) {
	for _, s := range c {
		if out, ok := s.Try(in); ok {
			return out, s.Name, true
		}
	}
	var zero Out
	return zero, "", false
}

// Names 返回策略名列表，用于日志和测试。
func (c Chain[In, Out]) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}
