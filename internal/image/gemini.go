package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// GeminiGenerator 通过 Imagen 模型生成图片。接口直接返回图片字节，
// 因此图片先写入 <public>/output/images，再返回其相对路径。
type GeminiGenerator struct {
	cfg Config

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini 创建 Imagen 图像生成器。
func NewGemini(cfg Config) *GeminiGenerator {
	if cfg.Model == "" {
		cfg.Model = "imagen-3.0-generate-002"
	}
	return &GeminiGenerator{cfg: cfg}
}

func (g *GeminiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	clientCfg := &genai.ClientConfig{APIKey: g.cfg.APIToken, Backend: genai.BackendGeminiAPI}
	if g.cfg.APIURL != "" {
		clientCfg.HTTPOptions.BaseURL = g.cfg.APIURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

// Generate 实现 Generator 接口。Imagen 不支持种子，Request.Seed 被忽略。
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	const op = "image.gemini"
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errs.Validation(op, "提示词不能为空")
	}
	if g.cfg.APIToken == "" {
		return "", errs.Config(op, "未配置 Gemini API Key")
	}

	client, err := g.getClient(ctx)
	if err != nil {
		return "", errs.Upstream(op, err)
	}

	resp, err := client.Models.GenerateImages(ctx, g.cfg.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return "", errs.Upstream(op, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return "", errs.Upstreamf(op, "响应中没有图片数据")
	}

	name := uuid.NewString() + ".png"
	dir := filepath.Join(g.cfg.PublicDir, "output", "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.Internal(op, fmt.Errorf("创建图片目录失败: %w", err))
	}
	if err := os.WriteFile(filepath.Join(dir, name), resp.GeneratedImages[0].Image.ImageBytes, 0644); err != nil {
		return "", errs.Internal(op, fmt.Errorf("保存图片失败: %w", err))
	}

	logger.Infof("[image] imagen 生成完成: %s", name)
	return "/output/images/" + name, nil
}
