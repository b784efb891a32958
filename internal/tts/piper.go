package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// piperSampleRate 是 piper 输出的固定采样率。
const piperSampleRate = 22050

// PiperEngine 调用 piper CLI 离线合成，多说话人模型可用数字音色选择说话人。
type PiperEngine struct {
	binary    string
	modelPath string
}

// NewPiperEngine 创建指定模型的 Piper 引擎。
func NewPiperEngine(modelPath string) *PiperEngine {
	return &PiperEngine{binary: "piper", modelPath: modelPath}
}

// Synthesize 实现 Engine 接口。piper 输出 16-bit LE 单声道 PCM。
func (p *PiperEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	const op = "tts.piper"
	if p.modelPath == "" {
		return nil, 0, errs.Config(op, "未配置 piper 模型路径")
	}

	args := []string{"--model", p.modelPath, "--output-raw"}
	if _, err := strconv.Atoi(voice); err == nil {
		args = append(args, "--speaker", voice)
	}
	logger.Debugf("[tts] piper: 正在合成 %d 个字符，模型=%s", len([]rune(text)), p.modelPath)

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = bytes.NewReader([]byte(text))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, errs.Tool(op, stderr.String(), fmt.Errorf("piper 执行失败: %w", err))
	}
	if stdout.Len() == 0 {
		return nil, 0, errs.Tool(op, "未收到音频数据", nil)
	}

	samples := audio.BytesToFloat32(stdout.Bytes())
	logger.Debugf("[tts] piper: 生成 %d 个单声道样本", len(samples))
	return samples, piperSampleRate, nil
}
