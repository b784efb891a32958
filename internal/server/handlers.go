package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/image"
	"github.com/iabetor/aistory/internal/library"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/pipeline"
	"github.com/iabetor/aistory/internal/translate"
	"github.com/iabetor/aistory/internal/tts"
	"github.com/iabetor/aistory/internal/voice"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"ttsReady": s.deps.Engine != nil && s.deps.Engine.Ready(),
	})
}

func (s *Server) generateStory(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	text, err := s.deps.Stories.Story(ctx, req.Theme)
	if err != nil {
		fail(c, err)
		return
	}
	s.deps.Recorder.Story(ctx, library.KindStory, req.Theme, text)
	c.JSON(http.StatusOK, gin.H{"success": true, "story": text})
}

func (s *Server) generateScript(c *gin.Context) {
	var req struct {
		Story string `json:"story"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	scenes, err := s.deps.Stories.Script(ctx, req.Story)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "scenes": scenes})
}

func (s *Server) generateImage(c *gin.Context) {
	var req struct {
		Prompt    string `json:"prompt"`
		SectionID string `json:"sectionId"`
		Seed      int    `json:"seed"`
	}
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		fail(c, errs.Validation("server.generateImage", "提示词不能为空"))
		return
	}
	if s.deps.Images == nil {
		fail(c, errs.Config("server.generateImage", "未配置图像生成服务"))
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	url, err := s.deps.Images.Generate(ctx, image.Request{Prompt: req.Prompt, Seed: req.Seed})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": url, "sectionId": req.SectionID})
}

func (s *Server) generateImagePrompt(c *gin.Context) {
	var req struct {
		Text    string `json:"text"`
		Context string `json:"context"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	prompt, err := s.deps.Stories.ImagePrompt(ctx, req.Text, req.Context)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prompt": prompt})
}

func (s *Server) generatePodcast(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	content, turns, err := s.deps.Stories.Podcast(ctx, req.Topic)
	if err != nil {
		fail(c, err)
		return
	}
	s.deps.Recorder.Story(ctx, library.KindPodcast, req.Topic, content)
	c.JSON(http.StatusOK, gin.H{"success": true, "content": content, "script": turns})
}

func (s *Server) generatePodcastScript(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	turns, err := s.deps.Stories.PodcastScript(ctx, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "script": turns})
}

func (s *Server) downloadImages(c *gin.Context) {
	var req struct {
		Images []image.Item `json:"images"`
		Theme  string       `json:"theme"`
	}
	if !bind(c, &req) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	archive, err := s.deps.Archiver.Archive(ctx, req.Theme, req.Images)
	if err != nil {
		fail(c, err)
		return
	}
	s.deps.Recorder.Gallery(ctx, archive)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"directory":   archive.Directory,
		"totalImages": archive.Total,
		"failed":      archive.Failed,
	})
}

// translate 处理剧本和播客翻译。script 可以是字符串，也可以是任意 JSON。
func (s *Server) translate(kind translate.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Script json.RawMessage `json:"script"`
		}
		if !bind(c, &req) {
			return
		}
		text := scriptText(req.Script)
		if text == "" {
			fail(c, errs.Validation("server.translate", "请提供需要翻译的内容"))
			return
		}
		if s.deps.Translator == nil {
			fail(c, errs.Config("server.translate", "未配置翻译服务"))
			return
		}
		ctx, cancel := s.requestContext(c)
		defer cancel()

		translation, err := s.deps.Translator.Translate(ctx, kind, text)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "translation": translation})
	}
}

func scriptText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

func (s *Server) voices(c *gin.Context) {
	engine := s.deps.VoiceEngine
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"voices":   voice.Catalog(engine),
		"provider": engine,
	})
}

// generate 用共享引擎合成单段文本，写到 /output/<任务ID>/audio.wav。
func (s *Server) generate(c *gin.Context) {
	const op = "server.generate"
	var req struct {
		Text    string `json:"text"`
		Voice   string `json:"voice"`
		Emotion string `json:"emotion"`
	}
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		fail(c, errs.Validation(op, "请提供有效的文本"))
		return
	}
	if s.deps.Engine == nil {
		fail(c, errs.Config(op, "未配置音频合成"))
		return
	}
	logger.Infof("[server] TTS 请求: 文本=%.100q, 声音=%q, 情感=%q", req.Text, req.Voice, req.Emotion)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	engine, err := s.deps.Engine.Acquire(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	samples, rate, err := tts.SynthesizeWith(ctx, engine, req.Text, req.Voice, req.Emotion)
	if err != nil {
		fail(c, err)
		return
	}
	if len(samples) == 0 {
		fail(c, errs.Upstreamf(op, "未生成音频"))
		return
	}

	id := pipeline.NewJobID(time.Now())
	dir := filepath.Join(s.deps.PublicDir, "output", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fail(c, errs.Internal(op, err))
		return
	}
	if err := audio.WriteWAV(filepath.Join(dir, "audio.wav"), samples, rate); err != nil {
		fail(c, errs.Internal(op, err))
		return
	}
	url := "/output/" + id + "/audio.wav"
	s.deps.Recorder.Audio(ctx, pipeline.Result{JobID: id, Filename: url, Sections: 1})
	c.JSON(http.StatusOK, gin.H{"success": true, "audioUrl": url})
}

// mockTTS 用模拟引擎合成一段提示音，方便前端在没有 TTS 服务时联调。
func (s *Server) mockTTS(c *gin.Context) {
	text := strings.TrimSpace(c.Query("text"))
	v := c.DefaultQuery("voice", "default")
	if text == "" {
		fail(c, errs.Validation("server.mockTTS", "text 不能为空"))
		return
	}
	logger.Infof("[server] 模拟 TTS 请求: 文本=%q, 声音=%q", text, v)

	samples, rate, err := s.mock.Synthesize(c.Request.Context(), text, v)
	if err != nil {
		fail(c, errs.Internal("server.mockTTS", err))
		return
	}
	dir := filepath.Join(s.deps.PublicDir, "output", "mock-tts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		fail(c, errs.Internal("server.mockTTS", err))
		return
	}
	name := uuid.NewString() + ".wav"
	if err := audio.WriteWAV(filepath.Join(dir, name), samples, rate); err != nil {
		fail(c, errs.Internal("server.mockTTS", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"audioUrl": "/output/mock-tts/" + name,
		"text":     text,
		"voice":    v,
	})
}

func (s *Server) historyStories(c *gin.Context) {
	if s.deps.Library == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "stories": []library.Story{}})
		return
	}
	stories, err := s.deps.Library.ListStories(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		fail(c, errs.Internal("server.historyStories", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stories": stories})
}

func (s *Server) historyArtifacts(c *gin.Context) {
	if s.deps.Library == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "artifacts": []library.Artifact{}})
		return
	}
	artifacts, err := s.deps.Library.ListArtifacts(c.Request.Context(), c.Query("kind"), queryInt(c, "limit"))
	if err != nil {
		fail(c, errs.Internal("server.historyArtifacts", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "artifacts": artifacts})
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
