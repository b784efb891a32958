package tts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

const mockSampleRate = 24000

// MockEngine 生成确定性的正弦波，不依赖任何外部服务。
// 文本包含 FailOn 中任一子串时返回错误，用于演练分段失败。
type MockEngine struct {
	FailOn []string

	mu    sync.Mutex
	calls []MockCall
}

// MockCall 记录一次合成调用。
type MockCall struct {
	Text    string
	Voice   string
	Emotion string
}

// NewMockEngine 创建模拟引擎。
func NewMockEngine(failOn ...string) *MockEngine {
	return &MockEngine{FailOn: failOn}
}

// Synthesize 实现 Engine 接口。每个字符 10ms，音高由音色决定。
func (m *MockEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	return m.SynthesizeEmotion(ctx, text, voice, "")
}

// SynthesizeEmotion 实现 EmotionEngine 接口。情感只记录，不影响波形。
func (m *MockEngine) SynthesizeEmotion(ctx context.Context, text, voice, emotion string) ([]float32, int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Text: text, Voice: voice, Emotion: emotion})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	for _, f := range m.FailOn {
		if f != "" && strings.Contains(text, f) {
			return nil, 0, fmt.Errorf("[tts] mock: 模拟合成失败 (%s)", f)
		}
	}

	freq := 220.0 + float64(len(voice)%8)*55.0
	n := len([]rune(text)) * mockSampleRate / 100
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/mockSampleRate))
	}
	return samples, mockSampleRate, nil
}

// Calls 返回已记录的调用。
func (m *MockEngine) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
