package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// OpenAIProvider 与 OpenAI 兼容的 chat completions 接口通信，
// DeepSeek、火山方舟（ARK）等服务都使用这一协议。
type OpenAIProvider struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIProvider 创建一个新的 OpenAI 兼容 LLM 提供者。
func NewOpenAIProvider(cfg ModelConfig) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.APIURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Complete 实现 Provider 接口。
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	const op = "llm.openai"
	if p.apiKey == "" {
		return "", errs.Config(op, "未配置 LLM API Key")
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errs.Upstream(op, err)
	}

	if len(resp.Choices) == 0 {
		return "", errs.Upstreamf(op, "无效的API响应: 没有 choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errs.Upstreamf(op, "无效的API响应: 内容为空")
	}

	logger.Debugf("[llm] %s 完成，耗时 %v，tokens=%d", p.model, time.Since(start), resp.Usage.TotalTokens)
	return content, nil
}
