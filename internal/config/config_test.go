package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Server.Addr", cfg.Server.Addr, ":3000"},
		{"Server.PublicDir", cfg.Server.PublicDir, "./public"},
		{"Server.TempDir", cfg.Server.TempDir, "./temp"},
		{"Server.RequestTimeout", cfg.Server.RequestTimeout, 300},
		{"LLM.Provider", cfg.LLM.Provider, "openai"},
		{"LLM.APIURL", cfg.LLM.APIURL, "https://api.deepseek.com/v1"},
		{"LLM.Model", cfg.LLM.Model, "deepseek-chat"},
		{"LLM.MaxTokens", cfg.LLM.MaxTokens, 2000},
		{"Image.Provider", cfg.Image.Provider, "replicate"},
		{"Image.Model", cfg.Image.Model, "black-forest-labs/flux-schnell"},
		{"Image.Seed", cfg.Image.Seed, 1234},
		{"Image.Steps", cfg.Image.Steps, 4},
		{"TTS.Engine", cfg.TTS.Engine, "kokoro"},
		{"TTS.Volcano.Cluster", cfg.TTS.Volcano.Cluster, "volcano_tts"},
		{"Merge.FFmpegPath", cfg.Merge.FFmpegPath, "ffmpeg"},
		{"Translate.Provider", cfg.Translate.Provider, "llm"},
		{"Notify.Subject", cfg.Notify.Subject, "aistory.artifacts"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if cfg.Image.GuidanceScale != 7.5 {
		t.Errorf("Image.GuidanceScale: got %v, want 7.5", cfg.Image.GuidanceScale)
	}
}

func TestSetDefaults_GeminiModels(t *testing.T) {
	cfg := &Config{
		LLM:   LLMConfig{Provider: "gemini"},
		Image: ImageConfig{Provider: "gemini"},
	}
	setDefaults(cfg)

	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("LLM.Model: got %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIURL != "" {
		t.Errorf("gemini provider should not get an OpenAI base URL: %q", cfg.LLM.APIURL)
	}
	if cfg.Image.Model != "imagen-3.0-generate-002" {
		t.Errorf("Image.Model: got %q", cfg.Image.Model)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Addr: ":8080"},
		LLM:    LLMConfig{Model: "deepseek-reasoner", MaxTokens: 4000},
		TTS:    TTSConfig{Engine: "volcano"},
		Merge:  MergeConfig{FFmpegPath: "/usr/local/bin/ffmpeg"},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr should not be overridden: got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "deepseek-reasoner" {
		t.Errorf("LLM.Model should not be overridden: got %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4000 {
		t.Errorf("LLM.MaxTokens should not be overridden: got %d", cfg.LLM.MaxTokens)
	}
	if cfg.TTS.Engine != "volcano" {
		t.Errorf("TTS.Engine should not be overridden: got %s", cfg.TTS.Engine)
	}
	if cfg.Merge.FFmpegPath != "/usr/local/bin/ffmpeg" {
		t.Errorf("Merge.FFmpegPath should not be overridden: got %s", cfg.Merge.FFmpegPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestSetDefaults_TranslateInheritsTencentCredentials(t *testing.T) {
	cfg := &Config{
		TTS: TTSConfig{Tencent: TencentConfig{SecretID: "id", SecretKey: "key", Region: "ap-shanghai"}},
	}
	setDefaults(cfg)

	if cfg.Translate.Tencent.SecretID != "id" || cfg.Translate.Tencent.SecretKey != "key" {
		t.Errorf("translate credentials not inherited: %+v", cfg.Translate.Tencent)
	}
	if cfg.Translate.Tencent.Region != "ap-shanghai" {
		t.Errorf("translate region: got %q", cfg.Translate.Tencent.Region)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("AISTORY_TEST_LLM_KEY", "  sk-from-env  ")

	yamlContent := `
server:
  addr: ":9000"
llm:
  api_key: ${AISTORY_TEST_LLM_KEY}
  model: deepseek-chat
tts:
  engine: volcano
  volcano:
    app_id: app
merge:
  ffmpeg_path: /opt/ffmpeg
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "aistory.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr: got %q", cfg.Server.Addr)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("LLM.APIKey: got %q, want %q", cfg.LLM.APIKey, "sk-from-env")
	}
	if cfg.TTS.Engine != "volcano" || cfg.TTS.Volcano.AppID != "app" {
		t.Errorf("TTS: got %+v", cfg.TTS)
	}
	if cfg.Merge.FFmpegPath != "/opt/ffmpeg" {
		t.Errorf("Merge.FFmpegPath: got %q", cfg.Merge.FFmpegPath)
	}
	// 未设置的字段应填充默认值
	if cfg.Server.PublicDir != "./public" {
		t.Errorf("Server.PublicDir default not applied: %q", cfg.Server.PublicDir)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	tomlContent := `
[server]
addr = ":9100"

[image]
provider = "gemini"
api_token = "tok"

[tts]
engine = "edge"

[tts.edge]
voice = "en-GB-SoniaNeural"
`
	path := filepath.Join(t.TempDir(), "aistory.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("Server.Addr: got %q", cfg.Server.Addr)
	}
	if cfg.Image.Provider != "gemini" || cfg.Image.APIToken != "tok" {
		t.Errorf("Image: got %+v", cfg.Image)
	}
	if cfg.TTS.Edge.Voice != "en-GB-SoniaNeural" {
		t.Errorf("TTS.Edge.Voice: got %q", cfg.TTS.Edge.Voice)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
