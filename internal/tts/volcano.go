package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/voice"
)

const (
	volcanoSuccessCode = 3000
	volcanoSampleRate  = 24000
	// 小于该字节数的音频视为无效数据。
	volcanoMinAudioBytes = 100
)

// VolcanoEngine 调用火山引擎（字节跳动）在线 TTS 接口，
// 以 wav 编码一次性取回整段音频。
type VolcanoEngine struct {
	cfg    config.VolcanoConfig
	client *http.Client
}

// NewVolcanoEngine 创建火山引擎 TTS。凭证在合成时才校验。
func NewVolcanoEngine(cfg config.VolcanoConfig, timeout time.Duration) *VolcanoEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://openspeech.bytedance.com/api/v1/tts"
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "volcano_tts"
	}
	return &VolcanoEngine{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

type volcanoRequest struct {
	App struct {
		AppID   string `json:"appid"`
		Token   string `json:"token"`
		Cluster string `json:"cluster"`
	} `json:"app"`
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		VoiceType   string  `json:"voice_type"`
		Encoding    string  `json:"encoding"`
		Rate        int     `json:"rate"`
		SpeedRatio  float64 `json:"speed_ratio"`
		VolumeRatio float64 `json:"volume_ratio"`
		Emotion     string  `json:"emotion,omitempty"`
	} `json:"audio"`
	Request struct {
		ReqID     string `json:"reqid"`
		Text      string `json:"text"`
		Operation string `json:"operation"`
	} `json:"request"`
}

type volcanoResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Synthesize 实现 Engine 接口。音色会先经过 voice.NormalizeVolcano 规范化。
func (v *VolcanoEngine) Synthesize(ctx context.Context, text, voiceID string) ([]float32, int, error) {
	return v.SynthesizeEmotion(ctx, text, voiceID, "")
}

// SynthesizeEmotion 实现 EmotionEngine 接口，emotion 写入 audio.emotion。
func (v *VolcanoEngine) SynthesizeEmotion(ctx context.Context, text, voiceID, emotion string) ([]float32, int, error) {
	const op = "tts.volcano"
	token := v.cfg.Token
	accessKey := v.cfg.AccessKey
	if accessKey == "" {
		accessKey = token
	}
	if v.cfg.AppID == "" || token == "" {
		return nil, 0, errs.Config(op, "火山引擎 TTS 密钥未配置")
	}

	voiceType, replaced := voice.NormalizeVolcano(voiceID)
	if replaced {
		logger.Warnf("[tts] 音色 %s 未开通，将使用默认免费音色 %s", voiceID, voice.VolcanoDefault)
	}

	var req volcanoRequest
	req.App.AppID = v.cfg.AppID
	req.App.Token = token
	req.App.Cluster = v.cfg.Cluster
	req.User.UID = "aistory"
	req.Audio.VoiceType = voiceType
	req.Audio.Encoding = "wav"
	req.Audio.Rate = volcanoSampleRate
	req.Audio.SpeedRatio = 1.0
	req.Audio.VolumeRatio = 1.0
	req.Audio.Emotion = emotion
	req.Request.ReqID = uuid.NewString()
	req.Request.Text = text
	req.Request.Operation = "query"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, errs.Internal(op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errs.Internal(op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// 火山引擎要求 "Bearer;" 后跟 token，分号不是笔误。
	httpReq.Header.Set("Authorization", "Bearer; "+accessKey)

	logger.Debugf("[tts] volcano: 正在合成 %d 个字符，音色=%s，情感=%s", len([]rune(text)), voiceType, emotion)
	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("请求失败: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("读取响应失败: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, errs.Upstreamf(op, "%s (状态码 %d): %s", volcanoStatusMessage(resp.StatusCode), resp.StatusCode, truncate(string(respBody), 300))
	}

	var result volcanoResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("解析响应失败: %w", err))
	}
	if result.Code != volcanoSuccessCode {
		return nil, 0, errs.Upstreamf(op, "火山引擎TTS错误: %s (code=%d)", result.Message, result.Code)
	}
	if result.Data == "" {
		return nil, 0, errs.Upstreamf(op, "响应中没有音频数据")
	}

	data, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return nil, 0, errs.Upstream(op, fmt.Errorf("Base64 解码失败: %w", err))
	}
	if len(data) < volcanoMinAudioBytes {
		return nil, 0, errs.Upstreamf(op, "生成的音频数据异常，数据量过小 (%d 字节)", len(data))
	}

	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, 0, errs.Upstream(op, err)
	}
	logger.Debugf("[tts] volcano: 收到 %d 字节音频，%d 个样本", len(data), len(samples))
	return samples, rate, nil
}

func volcanoStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "请求参数错误，请检查文本内容和音色设置"
	case http.StatusUnauthorized:
		return "认证失败，请检查密钥配置"
	case http.StatusForbidden:
		return "无权限访问，请检查服务开通状态"
	case http.StatusTooManyRequests:
		return "请求过于频繁"
	case http.StatusInternalServerError:
		return "服务器内部错误"
	default:
		return "服务调用失败"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
