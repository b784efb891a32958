package server

import (
	"context"
	"time"

	"github.com/iabetor/aistory/internal/image"
	"github.com/iabetor/aistory/internal/library"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/notify"
	"github.com/iabetor/aistory/internal/pipeline"
)

// Recorder 把生成结果写入历史库并发布通知。
// 两者都是尽力而为，失败只记日志，不影响接口返回。
type Recorder struct {
	lib *library.Store
	pub notify.Publisher
}

// NewRecorder 创建 Recorder。lib 或 pub 为 nil 时跳过对应步骤。
func NewRecorder(lib *library.Store, pub notify.Publisher) *Recorder {
	if pub == nil {
		pub = notify.Noop{}
	}
	return &Recorder{lib: lib, pub: pub}
}

// Story 保存一篇故事或播客文稿。
func (r *Recorder) Story(ctx context.Context, kind, theme, content string) {
	if r.lib == nil {
		return
	}
	if err := r.lib.SaveStory(ctx, &library.Story{Kind: kind, Theme: theme, Content: content}); err != nil {
		logger.Warnf("[server] 保存历史失败: %v", err)
	}
}

// Audio 记录合成完成的音频，作为 pipeline.Config.OnComplete 使用。
func (r *Recorder) Audio(ctx context.Context, res pipeline.Result) {
	r.artifact(ctx, library.Artifact{
		Kind:     library.ArtifactAudio,
		Path:     res.Filename,
		Sections: res.Sections,
		Failed:   res.Failed,
	}, res.JobID)
}

// Gallery 记录归档的图片画廊。
func (r *Recorder) Gallery(ctx context.Context, a *image.Archive) {
	r.artifact(ctx, library.Artifact{
		Kind:     library.ArtifactGallery,
		Path:     a.Directory,
		Sections: a.Total,
		Failed:   a.Failed,
	}, "")
}

func (r *Recorder) artifact(ctx context.Context, a library.Artifact, jobID string) {
	a.CreatedAt = time.Now().UTC()
	if r.lib != nil {
		if err := r.lib.RecordArtifact(ctx, &a); err != nil {
			logger.Warnf("[server] 记录产物失败: %v", err)
		}
	}
	err := r.pub.Publish(ctx, notify.Event{
		Kind:      a.Kind,
		JobID:     jobID,
		Path:      a.Path,
		Sections:  a.Sections,
		Failed:    a.Failed,
		CreatedAt: a.CreatedAt,
	})
	if err != nil {
		logger.Warnf("[server] 发布通知失败: %v", err)
	}
}
