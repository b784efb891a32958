package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/pipeline"
)

// startStream 写出流式响应头并返回 NDJSON 写入器。
func startStream(c *gin.Context) *pipeline.Writer {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	return pipeline.NewWriter(c.Writer)
}

// generateAndMerge 逐段合成并合并音频，进度以 NDJSON 流返回。
// 客户端断开不会取消任务。
func (s *Server) generateAndMerge(c *gin.Context) {
	var req struct {
		Sections []pipeline.Section `json:"sections"`
	}
	bindErr := c.ShouldBindJSON(&req)

	w := startStream(c)
	defer w.Close()

	if bindErr != nil {
		w.Emit(pipeline.Failure("请提供有效的音频部分"))
		return
	}
	if s.deps.Audio == nil {
		w.Emit(pipeline.Failure(errs.Config("server.generateAndMerge", "未配置音频合成").Error()))
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	s.deps.Audio.Run(ctx, req.Sections, w)
}

// generateAllImages 为所有段落批量配图。
func (s *Server) generateAllImages(c *gin.Context) {
	var req struct {
		Sections []pipeline.ImageSection `json:"sections"`
	}
	bindErr := c.ShouldBindJSON(&req)

	w := startStream(c)
	defer w.Close()

	if bindErr != nil {
		w.Emit(pipeline.Event{Type: pipeline.EventError, Error: "请求格式错误"})
		return
	}
	if s.deps.Images == nil {
		w.Emit(pipeline.Event{Type: pipeline.EventError, Error: errs.Config("server.generateAllImages", "未配置图像生成服务").Error()})
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	pipeline.NewImageBatch(s.deps.Stories, s.deps.Images).Run(ctx, req.Sections, w)
}
