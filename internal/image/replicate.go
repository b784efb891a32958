package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/extract"
	"github.com/iabetor/aistory/internal/logger"
)

// ReplicateGenerator 通过 Replicate 预测接口调用 flux-schnell 等模型。
type ReplicateGenerator struct {
	baseURL  string
	token    string
	model    string
	seed     int
	steps    int
	guidance float64
	client   *http.Client
	// pollInterval 预测未在同步等待内完成时的轮询间隔。
	pollInterval time.Duration
}

// NewReplicate 创建 Replicate 图像生成器。
func NewReplicate(cfg Config) *ReplicateGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	base := strings.TrimRight(cfg.APIURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "black-forest-labs/flux-schnell"
	}
	steps := cfg.Steps
	if steps <= 0 {
		steps = 4
	}
	guidance := cfg.GuidanceScale
	if guidance <= 0 {
		guidance = 7.5
	}
	return &ReplicateGenerator{
		baseURL:      base,
		token:        cfg.APIToken,
		model:        model,
		seed:         cfg.Seed,
		steps:        steps,
		guidance:     guidance,
		client:       &http.Client{Timeout: timeout},
		pollInterval: time.Second,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate 实现 Generator 接口。
func (g *ReplicateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	const op = "image.replicate"
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errs.Validation(op, "提示词不能为空")
	}
	if g.token == "" {
		return "", errs.Config(op, "未配置 Replicate API Token")
	}

	body, err := json.Marshal(map[string]any{
		"input": map[string]any{
			"prompt":              prompt,
			"seed":                seedOf(req, g.seed),
			"num_inference_steps": g.steps,
			"guidance_scale":      g.guidance,
		},
	})
	if err != nil {
		return "", errs.Internal(op, err)
	}

	start := time.Now()
	url := fmt.Sprintf("%s/models/%s/predictions", g.baseURL, g.model)
	pred, err := g.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", errs.Upstream(op, err)
	}

	// Prefer: wait 下大多数预测会直接完成，否则按 urls.get 轮询直到结束。
	for !terminal(pred.Status) && pred.URLs.Get != "" {
		select {
		case <-ctx.Done():
			return "", errs.Upstream(op, ctx.Err())
		case <-time.After(g.pollInterval):
		}
		if pred, err = g.do(ctx, http.MethodGet, pred.URLs.Get, nil); err != nil {
			return "", errs.Upstream(op, err)
		}
	}

	if pred.Status != "" && pred.Status != "succeeded" {
		return "", errs.Upstreamf(op, "预测失败 (%s): %v", pred.Status, pred.Error)
	}

	var output any
	if len(pred.Output) > 0 {
		if err := json.Unmarshal(pred.Output, &output); err != nil {
			return "", errs.Upstream(op, fmt.Errorf("解析 output 失败: %w", err))
		}
	}
	imageURL, ok := extract.ImageURL(output)
	if !ok {
		return "", errs.Upstreamf(op, "响应中没有有效的图片地址")
	}

	logger.Infof("[image] replicate 生成完成，耗时 %v", time.Since(start).Round(time.Millisecond))
	return imageURL, nil
}

func (g *ReplicateGenerator) do(ctx context.Context, method, url string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Prefer", "wait")
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API 返回错误 (状态码 %d): %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var pred prediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return &pred, nil
}

func terminal(status string) bool {
	switch status {
	case "", "succeeded", "failed", "canceled":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
