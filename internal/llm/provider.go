package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// 消息角色。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 表示与 LLM 对话中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options 单次补全请求的可选参数，零值使用提供者的默认值。
type Options struct {
	// JSON 要求模型返回 JSON 对象（对应 response_format / responseMimeType）。
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// Provider 定义一次性（非流式）补全的 LLM 后端接口。
type Provider interface {
	// Complete 发送对话消息并返回模型的完整文本回复。
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ModelConfig 描述一个 LLM 模型的连接信息。
type ModelConfig struct {
	Provider    string // openai 或 gemini
	APIURL      string // API 地址，gemini 可留空
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// New 根据配置创建 Provider。凭证缺失不会在此报错，而是在调用时报错。
func New(cfg ModelConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "deepseek", "ark":
		return NewOpenAIProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("[llm] 不支持的 LLM 提供者: %s", cfg.Provider)
	}
}

// System 和 User 是构造消息的便捷函数。
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User 构造用户消息。
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// ProviderFunc 把普通函数适配为 Provider。
type ProviderFunc func(ctx context.Context, messages []Message, opts Options) (string, error)

// Complete 实现 Provider 接口。
func (f ProviderFunc) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	return f(ctx, messages, opts)
}
