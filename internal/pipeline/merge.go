package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// Merger 按清单顺序拼接音频文件。
type Merger interface {
	Merge(ctx context.Context, manifest, output string) error
}

// FFmpegMerger 用 ffmpeg 的 concat demuxer 无损拼接 WAV。
type FFmpegMerger struct {
	path string
}

// NewFFmpegMerger 创建合并器。path 为空时从 PATH 中查找 ffmpeg。
func NewFFmpegMerger(path string) *FFmpegMerger {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMerger{path: path}
}

// Merge 执行 ffmpeg -y -f concat -safe 0 -i manifest -c copy output。
// 失败时错误信息里带上 ffmpeg 的 stderr。
func (m *FFmpegMerger) Merge(ctx context.Context, manifest, output string) error {
	const op = "pipeline.merge"
	cmd := exec.CommandContext(ctx, m.path,
		"-y", "-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy", output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debugf("[pipeline] 执行: %s", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return errs.Tool(op, lastLines(stderr.String(), 10), fmt.Errorf("ffmpeg 执行失败: %w", err))
	}
	return nil
}

// writeManifest 写 concat 清单，每行 file '<绝对路径>'。
func writeManifest(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		// concat 清单中单引号需写成 '\''
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
