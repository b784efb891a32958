package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// textToVoiceAPI 是 tts.Client 中用到的方法。
type textToVoiceAPI interface {
	TextToVoiceWithContext(ctx context.Context, request *tts.TextToVoiceRequest) (*tts.TextToVoiceResponse, error)
}

// TencentEngine 使用腾讯云 TTS 实现语音合成，返回 MP3 后解码。
// 音色 ID 是数字形式的 VoiceType，如 "101001"。
type TencentEngine struct {
	client    textToVoiceAPI
	voiceType int64
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg config.TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errs.Config("tts.tencent", "腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.VoiceType == 0 {
		cfg.VoiceType = 101001 // 智瑜（女声）
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", cfg.VoiceType, cfg.Region)
	return &TencentEngine{client: client, voiceType: cfg.VoiceType}, nil
}

// Synthesize 实现 Engine 接口。voice 无法解析为数字时使用默认音色。
func (e *TencentEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	const op = "tts.tencent"
	voiceType := e.voiceType
	if v, err := strconv.ParseInt(voice, 10, 64); err == nil && v > 0 {
		voiceType = v
	}
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(fmt.Sprintf("aistory-%d", voiceType))
	request.VoiceType = common.Int64Ptr(voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(0)
	request.Volume = common.Float64Ptr(5.0)

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("合成失败: %w", err))
	}
	if response.Response == nil || response.Response.Audio == nil || *response.Response.Audio == "" {
		return nil, 0, errs.Upstreamf(op, "未返回音频数据")
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("Base64 解码失败: %w", err))
	}

	samples, rate, err := audio.DecodeMP3(mp3Data)
	if err != nil {
		return nil, 0, errs.Upstream(op, err)
	}
	logger.Debugf("[tts] 腾讯云 TTS: %d 字节 MP3 -> %d 个样本 @ %d Hz", len(mp3Data), len(samples), rate)
	return samples, rate, nil
}
