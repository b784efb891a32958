package llm

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// GeminiProvider 通过 Google GenAI SDK 调用 Gemini 模型。
// 客户端在第一次调用时创建。
type GeminiProvider struct {
	cfg ModelConfig

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider 创建 Gemini 提供者。
func NewGeminiProvider(cfg ModelConfig) *GeminiProvider {
	return &GeminiProvider{cfg: cfg}
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  p.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.cfg.APIURL != "" {
		clientCfg.HTTPOptions.BaseURL = p.cfg.APIURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// Complete 实现 Provider 接口。system 消息合并为 SystemInstruction。
func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	const op = "llm.gemini"
	if p.cfg.APIKey == "" {
		return "", errs.Config(op, "未配置 Gemini API Key")
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return "", errs.Upstream(op, err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if t := pick(opts.Temperature, p.cfg.Temperature); t > 0 {
		genCfg.Temperature = genai.Ptr(t)
	}
	if n := pickInt(opts.MaxTokens, p.cfg.MaxTokens); n > 0 {
		genCfg.MaxOutputTokens = int32(n)
	}
	if opts.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	var systemParts []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, contents, genCfg)
	if err != nil {
		return "", errs.Upstream(op, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errs.Upstreamf(op, "Gemini 未返回文本内容")
	}

	logger.Debugf("[llm] gemini %s 返回 %d 个字符", p.cfg.Model, len([]rune(text)))
	return text, nil
}

func pick(a, b float32) float32 {
	if a > 0 {
		return a
	}
	return b
}

func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
