package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/voice"
)

// KokoroEngine 使用 sherpa-onnx 加载本地 Kokoro 模型进行离线合成。
// 模型目录需包含 model.onnx、voices.bin、tokens.txt 和 espeak-ng-data。
type KokoroEngine struct {
	mu    sync.Mutex // OfflineTts 不支持并发 Generate
	tts   *sherpa.OfflineTts
	speed float32
}

var _ Engine = (*KokoroEngine)(nil)

// NewKokoroEngine 加载 Kokoro 模型。
func NewKokoroEngine(cfg config.KokoroConfig) (*KokoroEngine, error) {
	if cfg.ModelDir == "" {
		return nil, fmt.Errorf("[tts] 未配置 kokoro 模型目录")
	}
	model := filepath.Join(cfg.ModelDir, "model.onnx")
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("[tts] kokoro 模型不存在: %w", err)
	}

	ttsConfig := sherpa.OfflineTtsConfig{}
	ttsConfig.Model.Kokoro.Model = model
	ttsConfig.Model.Kokoro.Voices = filepath.Join(cfg.ModelDir, "voices.bin")
	ttsConfig.Model.Kokoro.Tokens = filepath.Join(cfg.ModelDir, "tokens.txt")
	ttsConfig.Model.Kokoro.DataDir = filepath.Join(cfg.ModelDir, "espeak-ng-data")
	ttsConfig.Model.NumThreads = cfg.NumThreads
	if ttsConfig.Model.NumThreads <= 0 {
		ttsConfig.Model.NumThreads = 2
	}
	ttsConfig.Model.Provider = "cpu"
	ttsConfig.MaxNumSentences = 1

	t := sherpa.NewOfflineTts(&ttsConfig)
	if t == nil {
		return nil, fmt.Errorf("[tts] 创建 kokoro 合成器失败，模型目录: %s", cfg.ModelDir)
	}

	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	logger.Infof("[tts] kokoro 模型已加载: %s (speakers=%d, sample_rate=%d)", cfg.ModelDir, t.NumSpeakers(), t.SampleRate())
	return &KokoroEngine{tts: t, speed: speed}, nil
}

// Synthesize 实现 Engine 接口。未知音色回退到默认音色 af。
func (k *KokoroEngine) Synthesize(ctx context.Context, text, voiceID string) ([]float32, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, fmt.Errorf("[tts] kokoro: 文本为空")
	}
	sid := speakerID(voiceID)

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tts == nil {
		return nil, 0, fmt.Errorf("[tts] kokoro 引擎已关闭")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	logger.Debugf("[tts] kokoro: 正在合成 %d 个字符，音色=%s(sid=%d)", len([]rune(text)), voiceID, sid)
	generated := k.tts.Generate(text, sid, k.speed)
	if generated == nil || len(generated.Samples) == 0 {
		return nil, 0, fmt.Errorf("[tts] kokoro: 未生成音频")
	}
	return generated.Samples, generated.SampleRate, nil
}

// Close 释放模型。
func (k *KokoroEngine) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.tts != nil {
		sherpa.DeleteOfflineTts(k.tts)
		k.tts = nil
	}
}

func speakerID(voiceID string) int {
	if d, ok := voice.Lookup(voice.EngineKokoro, voiceID); ok {
		return d.Speaker
	}
	if voiceID != "" && voiceID != "default" {
		logger.Warnf("[tts] kokoro: 未知音色 %s，使用默认音色", voiceID)
	}
	return 0
}
