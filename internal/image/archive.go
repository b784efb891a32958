package image

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/slug"
)

// Item 待归档的一张图片。
type Item struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// Archive 归档结果。
type Archive struct {
	Directory string // 相对静态根目录的路径，如 /output/2025-...-fox
	Total     int
	Failed    int
}

// Archiver 把图片下载到 <public>/output/<时间戳>-<主题> 目录，
// 同时写入 prompts.txt、errors.txt 和 gallery.html。
type Archiver struct {
	publicDir string
	client    *http.Client
	now       func() time.Time
}

// NewArchiver 创建归档器。
func NewArchiver(publicDir string) *Archiver {
	return &Archiver{
		publicDir: publicDir,
		client:    &http.Client{Timeout: 60 * time.Second},
		now:       time.Now,
	}
}

type galleryItem struct {
	File   string
	Index  int
	Prompt string
}

var galleryTemplate = template.Must(template.New("gallery").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Theme}} - Image Gallery</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; }
        .theme { margin-bottom: 20px; color: #666; }
        .image-container { margin-bottom: 30px; }
        img { max-width: 100%; height: auto; border-radius: 8px; }
        .prompt { margin-top: 10px; padding: 10px; background: #f5f5f5; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>Generated Images</h1>
    <div class="theme">Theme: {{.Theme}}</div>
{{- range .Items}}
    <div class="image-container">
        <img src="{{.File}}" alt="Generated image {{.Index}}">
        <div class="prompt">
            <strong>Prompt {{.Index}}:</strong><br>
            {{.Prompt}}
        </div>
    </div>
{{- end}}
</body>
</html>
`))

// Archive 逐张下载图片。单张失败记录到 errors.txt，不中断整体归档。
func (a *Archiver) Archive(ctx context.Context, theme string, items []Item) (*Archive, error) {
	const op = "image.Archive"
	if len(items) == 0 {
		return nil, errs.Validation(op, "没有可下载的图片")
	}
	theme = strings.TrimSpace(theme)
	if theme == "" {
		theme = "Story"
	}

	name := slug.Stamp(a.now()) + "-" + slug.Make(theme, 0)
	dir := filepath.Join(a.publicDir, "output", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Internal(op, fmt.Errorf("创建目录失败: %w", err))
	}

	var prompts, failures strings.Builder
	gallery := make([]galleryItem, 0, len(items))
	failed := 0
	for i, it := range items {
		file := fmt.Sprintf("image-%03d.webp", i+1)
		if err := a.fetch(ctx, it.URL, filepath.Join(dir, file)); err != nil {
			failed++
			fmt.Fprintf(&failures, "Failed to download image %d:\nURL: %s\nError: %v\n\n", i+1, it.URL, err)
			logger.Warnf("[image] 下载第 %d 张图片失败: %v", i+1, err)
		} else {
			fmt.Fprintf(&prompts, "Image %d:\n%s\nURL: %s\n\n", i+1, it.Prompt, it.URL)
		}
		gallery = append(gallery, galleryItem{File: file, Index: i + 1, Prompt: it.Prompt})
	}

	if prompts.Len() > 0 {
		if err := os.WriteFile(filepath.Join(dir, "prompts.txt"), []byte(prompts.String()), 0644); err != nil {
			return nil, errs.Internal(op, err)
		}
	}
	if failures.Len() > 0 {
		if err := os.WriteFile(filepath.Join(dir, "errors.txt"), []byte(failures.String()), 0644); err != nil {
			return nil, errs.Internal(op, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, "gallery.html"))
	if err != nil {
		return nil, errs.Internal(op, err)
	}
	defer f.Close()
	if err := galleryTemplate.Execute(f, struct {
		Theme string
		Items []galleryItem
	}{theme, gallery}); err != nil {
		return nil, errs.Internal(op, fmt.Errorf("生成画廊失败: %w", err))
	}

	logger.Infof("[image] 已归档 %d 张图片到 %s，失败 %d 张", len(items)-failed, dir, failed)
	return &Archive{Directory: "/output/" + name, Total: len(items), Failed: failed}, nil
}

// fetch 下载一张图片。/output/ 开头的地址是本服务生成的文件，直接从静态目录复制。
func (a *Archiver) fetch(ctx context.Context, url, dst string) error {
	if strings.HasPrefix(url, "/output/") {
		src, err := a.localPath(url)
		if err != nil {
			return err
		}
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		return writeFile(dst, in)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载失败: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return writeFile(dst, resp.Body)
}

// localPath 把 /output/ 下的地址映射为本地文件，只允许落在 <public>/output 之内。
func (a *Archiver) localPath(url string) (string, error) {
	base := filepath.Join(a.publicDir, "output")
	src := filepath.Join(a.publicDir, filepath.FromSlash(strings.TrimPrefix(url, "/")))
	rel, err := filepath.Rel(base, src)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("非法路径: %s", url)
	}
	return src, nil
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
