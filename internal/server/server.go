// Package server 暴露 HTTP 接口：故事、剧本、配图、播客、翻译和多段音频合成。
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/image"
	"github.com/iabetor/aistory/internal/library"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/pipeline"
	"github.com/iabetor/aistory/internal/story"
	"github.com/iabetor/aistory/internal/translate"
	"github.com/iabetor/aistory/internal/tts"
)

// Deps 是服务依赖的组件。Library 为 nil 时不记录历史。
type Deps struct {
	Addr           string
	PublicDir      string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	VoiceEngine    string

	Stories    *story.Generator
	Images     image.Generator
	Archiver   *image.Archiver
	Translator translate.Translator
	Audio      *pipeline.Runner
	Engine     *tts.Shared
	Library    *library.Store
	Recorder   *Recorder
}

// Server 包装 gin 路由和 http.Server。
type Server struct {
	deps   Deps
	router *gin.Engine
	http   *http.Server
	mock   *tts.MockEngine
}

// New 创建服务并注册路由。
func New(deps Deps) *Server {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 5 * time.Minute
	}
	if deps.Recorder == nil {
		deps.Recorder = NewRecorder(deps.Library, nil)
	}

	s := &Server{deps: deps, mock: tts.NewMockEngine()}
	r := gin.New()
	r.Use(accessLog(), recovery())
	s.router = r
	s.routes()

	s.http = &http.Server{
		Addr:              deps.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/healthz", s.health)
	r.Static("/output", filepath.Join(s.deps.PublicDir, "output"))

	api := r.Group("/api", limitBody(s.deps.MaxBodyBytes))
	api.POST("/generate", s.generate)
	api.POST("/generate-story", s.generateStory)
	api.POST("/generate-script", s.generateScript)
	api.POST("/generate-image", s.generateImage)
	api.POST("/generate-image-prompt", s.generateImagePrompt)
	api.POST("/generate-podcast", s.generatePodcast)
	api.POST("/generate-podcast-script", s.generatePodcastScript)
	api.POST("/generate-and-merge", s.generateAndMerge)
	api.POST("/generate-all-images", s.generateAllImages)
	api.POST("/download-images", s.downloadImages)
	api.POST("/translate-story-script", s.translate(translate.StoryScript))
	api.POST("/translate-podcast", s.translate(translate.Podcast))
	api.GET("/voices", s.voices)
	api.GET("/mock-tts", s.mockTTS)
	api.GET("/history/stories", s.historyStories)
	api.GET("/history/artifacts", s.historyArtifacts)
}

// Handler 返回路由，测试中配合 httptest 使用。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 开始监听，直到 Shutdown 被调用。
func (s *Server) Start() error {
	logger.Infof("[server] 监听 %s", s.deps.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭，等待进行中的请求结束。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// accessLog 用 zap 记录每个请求。
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Z.Error("[server] 请求", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Z.Warn("[server] 请求", fields...)
		default:
			logger.Z.Info("[server] 请求", fields...)
		}
	}
}

// recovery 把 panic 转成 500 JSON 响应。
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, p any) {
		logger.Errorf("[server] 处理 %s 时 panic: %v", c.Request.URL.Path, p)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "服务器内部错误"})
	})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// fail 按错误类别写出错误响应。
func fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("[server] %s 失败: %v", c.Request.URL.Path, err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// bind 解析 JSON 请求体，失败时直接写出 400。
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, errs.Validation(c.Request.URL.Path, "请求格式错误: "+err.Error()))
		return false
	}
	return true
}

// requestContext 为模型调用加上超时。
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.deps.RequestTimeout)
}
