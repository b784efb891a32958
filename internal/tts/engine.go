// Package tts 封装各语音合成后端。
//
// 所有引擎输出单声道 float32 样本和采样率，由调用方决定落盘格式。
package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/voice"
)

// Engine 定义语音合成后端接口。
type Engine interface {
	// Synthesize 用指定音色将文本转换为音频。voice 为空时使用引擎默认音色。
	// 返回 float32 音频样本、采样率（Hz）和错误。
	Synthesize(ctx context.Context, text, voice string) ([]float32, int, error)
}

// EmotionEngine 由支持情感/风格参数的引擎实现。
type EmotionEngine interface {
	SynthesizeEmotion(ctx context.Context, text, voice, emotion string) ([]float32, int, error)
}

// SynthesizeWith 合成一段文本。emotion 非空且引擎支持时带上情感，否则忽略。
func SynthesizeWith(ctx context.Context, e Engine, text, voice, emotion string) ([]float32, int, error) {
	if ee, ok := e.(EmotionEngine); ok && emotion != "" {
		return ee.SynthesizeEmotion(ctx, text, voice, emotion)
	}
	return e.Synthesize(ctx, text, voice)
}

// Closer 由持有本地资源（如 ONNX 模型）的引擎实现。
type Closer interface {
	Close()
}

// New 根据配置创建引擎。kokoro 需要加载模型，耗时较长，
// 一般通过 Shared 延迟到第一次使用时再调用。
func New(cfg config.TTSConfig, timeout time.Duration) (Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case voice.EngineKokoro, "":
		return NewKokoroEngine(cfg.Kokoro)
	case voice.EngineVolcano:
		return NewVolcanoEngine(cfg.Volcano, timeout), nil
	case voice.EngineEdge:
		return NewEdgeEngine(cfg.Edge.Voice), nil
	case voice.EngineTencent:
		return NewTencentEngine(cfg.Tencent)
	case voice.EnginePiper:
		return NewPiperEngine(cfg.Piper.ModelPath), nil
	case voice.EngineSay:
		return NewSayEngine(""), nil
	case voice.EngineMock:
		return NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("[tts] 不支持的 TTS 引擎: %s", cfg.Engine)
	}
}
