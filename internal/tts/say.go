package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// SayEngine 使用 macOS 内置 say 命令合成，仅在 macOS 上可用。
// 音色即 macOS 语音名称，如 "Samantha"。
type SayEngine struct {
	defaultVoice string
}

// NewSayEngine 创建 say 引擎。defaultVoice 为空时使用系统默认语音。
func NewSayEngine(defaultVoice string) *SayEngine {
	return &SayEngine{defaultVoice: defaultVoice}
}

// Synthesize 实现 Engine 接口。say 先输出 AIFF，再用 afconvert 转为 16-bit WAV。
func (s *SayEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	const op = "tts.say"
	if voice == "" || voice == "default" {
		voice = s.defaultVoice
	}

	dir, err := os.MkdirTemp("", "aistory-say-*")
	if err != nil {
		return nil, 0, errs.Internal(op, fmt.Errorf("创建临时目录失败: %w", err))
	}
	defer os.RemoveAll(dir)
	aiffPath := filepath.Join(dir, "out.aiff")
	wavPath := filepath.Join(dir, "out.wav")

	args := []string{"-o", aiffPath}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, text)
	if err := run(ctx, "say", args...); err != nil {
		return nil, 0, errs.Tool(op, "say 执行失败", err)
	}
	if err := run(ctx, "afconvert", "-f", "WAVE", "-d", "LEI16@22050", "-c", "1", aiffPath, wavPath); err != nil {
		return nil, 0, errs.Tool(op, "afconvert 执行失败", err)
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, 0, errs.Tool(op, "读取输出文件失败", err)
	}
	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, 0, errs.Tool(op, "解析 WAV 失败", err)
	}
	logger.Debugf("[tts] say: 生成 %d 个单声道样本", len(samples))
	return samples, rate, nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}
	return nil
}
