// Package image 调用图像生成模型，并把生成的图片归档为画廊。
package image

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultSeed 未指定种子时使用的值，保证同一提示词得到相同画面。
const DefaultSeed = 1234

// Request 一次图像生成请求。
type Request struct {
	Prompt string
	Seed   int // 0 表示使用默认种子
}

// Generator 图像生成接口，返回图片地址（远程 URL 或 /output 下的相对路径）。
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config 图像后端配置。
type Config struct {
	Provider      string // replicate 或 gemini
	APIURL        string
	APIToken      string
	Model         string
	Seed          int
	Steps         int
	GuidanceScale float64
	Timeout       time.Duration
	// PublicDir 是静态文件根目录，gemini 返回的图片字节保存在其 output/images 下。
	PublicDir string
}

// New 根据配置创建图像生成器。
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "replicate":
		return NewReplicate(cfg), nil
	case "gemini":
		return NewGemini(cfg), nil
	default:
		return nil, fmt.Errorf("[image] 不支持的图像提供者: %s", cfg.Provider)
	}
}

func seedOf(req Request, fallback int) int {
	if req.Seed != 0 {
		return req.Seed
	}
	if fallback != 0 {
		return fallback
	}
	return DefaultSeed
}
