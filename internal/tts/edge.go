package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// EdgeEngine 使用微软 Edge TTS 实现语音合成，
// 通过 edge-tts-go 获取 MP3 音频，再解码为 PCM。
type EdgeEngine struct {
	defaultVoice string
}

// NewEdgeEngine 创建 Edge TTS 引擎，defaultVoice 在请求未指定音色时使用。
func NewEdgeEngine(defaultVoice string) *EdgeEngine {
	if defaultVoice == "" {
		defaultVoice = "en-US-AriaNeural"
	}
	return &EdgeEngine{defaultVoice: defaultVoice}
}

// Synthesize 实现 Engine 接口。
func (e *EdgeEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	const op = "tts.edge"
	if voice == "" || voice == "default" {
		voice = e.defaultVoice
	}
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("创建实例失败: %w", err))
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("开始流式合成失败: %w", err))
	}

	// type=="audio" 的消息携带 MP3 数据块
	var mp3Buf bytes.Buffer
	for msg := range ch {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}
	if mp3Buf.Len() == 0 {
		return nil, 0, errs.Upstreamf(op, "未收到音频数据")
	}

	samples, rate, err := audio.DecodeMP3(mp3Buf.Bytes())
	if err != nil {
		return nil, 0, errs.Upstream(op, err)
	}
	logger.Debugf("[tts] edge-tts: %d 字节 MP3 -> %d 个样本 @ %d Hz", mp3Buf.Len(), len(samples), rate)
	return samples, rate, nil
}
