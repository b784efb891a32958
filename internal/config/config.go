package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config 是服务的顶层配置结构。
// 同一份结构既可以从 YAML 也可以从 TOML 读取。
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Image     ImageConfig     `yaml:"image" toml:"image"`
	TTS       TTSConfig       `yaml:"tts" toml:"tts"`
	Merge     MergeConfig     `yaml:"merge" toml:"merge"`
	Translate TranslateConfig `yaml:"translate" toml:"translate"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Notify    NotifyConfig    `yaml:"notify" toml:"notify"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	// PublicDir 是静态资源根目录，生成的产物写入 PublicDir/output。
	PublicDir string `yaml:"public_dir" toml:"public_dir"`
	// TempDir 存放分段音频等临时文件。
	TempDir string `yaml:"temp_dir" toml:"temp_dir"`
	// MaxBodyBytes 单个 JSON 请求体的大小上限。
	MaxBodyBytes int64 `yaml:"max_body_bytes" toml:"max_body_bytes"`
	// RequestTimeout 单次模型调用的超时时间（秒）。
	RequestTimeout int `yaml:"request_timeout" toml:"request_timeout"`
}

// LLMConfig 文本生成模型配置。
type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"` // openai（兼容 DeepSeek/ARK）或 gemini
	APIURL      string  `yaml:"api_url" toml:"api_url"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	Model       string  `yaml:"model" toml:"model"`
	Temperature float32 `yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
}

// ImageConfig 图像生成配置。
type ImageConfig struct {
	Provider      string  `yaml:"provider" toml:"provider"` // replicate 或 gemini
	APIURL        string  `yaml:"api_url" toml:"api_url"`
	APIToken      string  `yaml:"api_token" toml:"api_token"`
	Model         string  `yaml:"model" toml:"model"`
	Seed          int     `yaml:"seed" toml:"seed"`
	Steps         int     `yaml:"steps" toml:"steps"`
	GuidanceScale float64 `yaml:"guidance_scale" toml:"guidance_scale"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Engine  string        `yaml:"engine" toml:"engine"` // kokoro, volcano, edge, tencent, piper, say, mock
	Kokoro  KokoroConfig  `yaml:"kokoro" toml:"kokoro"`
	Volcano VolcanoConfig `yaml:"volcano" toml:"volcano"`
	Edge    EdgeConfig    `yaml:"edge" toml:"edge"`
	Tencent TencentConfig `yaml:"tencent" toml:"tencent"`
	Piper   PiperConfig   `yaml:"piper" toml:"piper"`
}

// KokoroConfig 本地 Kokoro ONNX 模型配置（sherpa-onnx）。
type KokoroConfig struct {
	ModelDir   string  `yaml:"model_dir" toml:"model_dir"`
	NumThreads int     `yaml:"num_threads" toml:"num_threads"`
	Speed      float32 `yaml:"speed" toml:"speed"`
}

// VolcanoConfig 火山引擎 TTS 配置。
type VolcanoConfig struct {
	APIURL    string `yaml:"api_url" toml:"api_url"`
	AppID     string `yaml:"app_id" toml:"app_id"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	Token     string `yaml:"token" toml:"token"`
	Cluster   string `yaml:"cluster" toml:"cluster"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice" toml:"voice"`
}

// TencentConfig 腾讯云配置，TTS 与机器翻译共用。
type TencentConfig struct {
	SecretID  string `yaml:"secret_id" toml:"secret_id"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	VoiceType int64  `yaml:"voice_type" toml:"voice_type"`
	Region    string `yaml:"region" toml:"region"`
}

// PiperConfig Piper TTS 配置。
type PiperConfig struct {
	ModelPath string `yaml:"model_path" toml:"model_path"`
}

// MergeConfig 音频合并配置。
type MergeConfig struct {
	// FFmpegPath 是 ffmpeg 可执行文件路径。
	FFmpegPath string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
}

// TranslateConfig 翻译配置。
type TranslateConfig struct {
	Provider string        `yaml:"provider" toml:"provider"` // llm 或 tencent
	Target   string        `yaml:"target" toml:"target"`
	Tencent  TencentConfig `yaml:"tencent" toml:"tencent"`
}

// StorageConfig 历史记录数据库配置。
type StorageConfig struct {
	// DBPath 为空时不记录历史。
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// NotifyConfig 产物完成通知配置。
type NotifyConfig struct {
	// NATSURL 为空时不发送通知。
	NATSURL string `yaml:"nats_url" toml:"nats_url"`
	Subject string `yaml:"subject" toml:"subject"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level" toml:"level"`
	File       string `yaml:"file" toml:"file"`
	MaxSize    int    `yaml:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAge     int    `yaml:"max_age" toml:"max_age"`
}

// Load 读取配置文件并返回 Config。
// 扩展名为 .toml 时按 TOML 解析，否则按 YAML 解析。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${DEEPSEEK_API_KEY}
	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal([]byte(expanded), cfg)
	default:
		err = yaml.Unmarshal([]byte(expanded), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// Default 返回只含默认值的配置，配置文件不存在时使用。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.PublicDir == "" {
		cfg.Server.PublicDir = "./public"
	}
	if cfg.Server.TempDir == "" {
		cfg.Server.TempDir = "./temp"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 300
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.APIURL == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIURL = "https://api.deepseek.com/v1"
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == "gemini" {
			cfg.LLM.Model = "gemini-2.0-flash"
		} else {
			cfg.LLM.Model = "deepseek-chat"
		}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}

	if cfg.Image.Provider == "" {
		cfg.Image.Provider = "replicate"
	}
	if cfg.Image.APIURL == "" && cfg.Image.Provider == "replicate" {
		cfg.Image.APIURL = "https://api.replicate.com/v1"
	}
	if cfg.Image.Model == "" {
		if cfg.Image.Provider == "gemini" {
			cfg.Image.Model = "imagen-3.0-generate-002"
		} else {
			cfg.Image.Model = "black-forest-labs/flux-schnell"
		}
	}
	if cfg.Image.Seed == 0 {
		cfg.Image.Seed = 1234
	}
	if cfg.Image.Steps == 0 {
		cfg.Image.Steps = 4
	}
	if cfg.Image.GuidanceScale == 0 {
		cfg.Image.GuidanceScale = 7.5
	}

	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "kokoro"
	}
	if cfg.TTS.Kokoro.NumThreads == 0 {
		cfg.TTS.Kokoro.NumThreads = 2
	}
	if cfg.TTS.Kokoro.Speed == 0 {
		cfg.TTS.Kokoro.Speed = 1.0
	}
	if cfg.TTS.Volcano.APIURL == "" {
		cfg.TTS.Volcano.APIURL = "https://openspeech.bytedance.com/api/v1/tts"
	}
	if cfg.TTS.Volcano.Cluster == "" {
		cfg.TTS.Volcano.Cluster = "volcano_tts"
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-AriaNeural"
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}

	if cfg.Merge.FFmpegPath == "" {
		cfg.Merge.FFmpegPath = "ffmpeg"
	}

	if cfg.Translate.Provider == "" {
		cfg.Translate.Provider = "llm"
	}
	if cfg.Translate.Target == "" {
		cfg.Translate.Target = "zh"
	}
	if cfg.Translate.Tencent.Region == "" {
		cfg.Translate.Tencent.Region = cfg.TTS.Tencent.Region
	}
	if cfg.Translate.Tencent.SecretID == "" {
		cfg.Translate.Tencent.SecretID = cfg.TTS.Tencent.SecretID
		cfg.Translate.Tencent.SecretKey = cfg.TTS.Tencent.SecretKey
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "aistory.artifacts"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	cfg.Log.File = expandHome(cfg.Log.File)

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.Image.APIToken = strings.TrimSpace(cfg.Image.APIToken)
	cfg.TTS.Volcano.AccessKey = strings.TrimSpace(cfg.TTS.Volcano.AccessKey)
	cfg.TTS.Volcano.Token = strings.TrimSpace(cfg.TTS.Volcano.Token)
}

// expandHome 展开以 ~/ 开头的路径，Go 不会自动处理。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}
