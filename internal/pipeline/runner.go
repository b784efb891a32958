// Package pipeline 实现多段音频合成：逐段 TTS、容忍单段失败、
// 用 ffmpeg 按顺序合并，并以 NDJSON 事件流报告进度。
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
	"github.com/iabetor/aistory/internal/slug"
	"github.com/iabetor/aistory/internal/tts"
)

const (
	msgPreparing  = "准备开始生成音频..."
	msgMerging    = "合并音频文件..."
	msgNoAudio    = "no audio generated"
	msgBadRequest = "请提供有效的音频部分"

	outputName   = "audio.wav"
	manifestName = "list.txt"
)

// Section 是一段待合成的文本及其音色。
type Section struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Result 描述一次成功的合成任务。
type Result struct {
	JobID    string
	Filename string // 对外的 URL 路径，如 /output/<job>/audio.wav
	Path     string // 合并后的本地文件
	Sections int
	Failed   int
}

// Config 配置 Runner。
type Config struct {
	PublicDir string
	TempDir   string
	Engine    *tts.Shared
	Merger    Merger

	// OnComplete 在 complete 事件之后调用，失败不影响事件流。
	OnComplete func(ctx context.Context, res Result)
	// Now 用于生成任务 ID，默认 time.Now。
	Now func() time.Time
}

// Runner 执行音频任务。不同任务之间互不影响，可并发调用 Run。
type Runner struct {
	cfg Config
}

// NewRunner 创建 Runner。
func NewRunner(cfg Config) *Runner {
	if cfg.Merger == nil {
		cfg.Merger = NewFFmpegMerger("")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "aistory")
	}
	return &Runner{cfg: cfg}
}

func invalidReason(sections []Section) string {
	if len(sections) == 0 {
		return msgBadRequest
	}
	for i, s := range sections {
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Sprintf("第 %d 部分文本为空", i+1)
		}
	}
	return ""
}

// NewJobID 生成任务 ID：UTC 时间戳加短随机后缀。
func NewJobID(now time.Time) string {
	return slug.Stamp(now) + "-" + uuid.NewString()[:8]
}

type job struct {
	id      string
	tempDir string
	outDir  string
	emit    Emitter
	tracker *Tracker
	log     *zap.SugaredLogger
}

// send 写入事件。客户端断开后写入会失败，任务照常执行。
func (j *job) send(e Event) {
	if err := j.emit.Emit(e); err != nil {
		logger.Debugf("[pipeline] %s: 事件写入失败 (%s): %v", j.id, e.Type, err)
	}
}

// fail 进入失败终态并发送 error 事件，已处于终态时什么都不做。
func (j *job) fail(msg string) {
	if j.tracker.Transition(PhaseFailed) {
		j.send(Failure(msg))
	}
}

// Run 执行一次任务。除了返回值之外，所有结果都通过 emit 报告，
// 且最后一个事件一定是唯一的 complete 或 error。
func (r *Runner) Run(ctx context.Context, sections []Section, emit Emitter) (res *Result, err error) {
	const op = "pipeline.Run"

	if msg := invalidReason(sections); msg != "" {
		emit.Emit(Failure(msg))
		return nil, errs.Validation(op, msg)
	}

	id := NewJobID(r.cfg.Now())
	j := &job{
		id:      id,
		tempDir: filepath.Join(r.cfg.TempDir, id),
		outDir:  filepath.Join(r.cfg.PublicDir, "output", id),
		emit:    emit,
		tracker: NewTracker(id),
		log:     logger.With("job", id),
	}

	defer func() {
		if p := recover(); p != nil {
			err = errs.Internal(op, fmt.Errorf("panic: %v", p))
			res = nil
			j.log.Errorf("[pipeline] 任务在 %s 阶段异常: %v", j.tracker.Current(), p)
			j.fail(err.Error())
		}
	}()

	for _, dir := range []string{j.tempDir, j.outDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			err = errs.Internal(op, fmt.Errorf("创建目录失败: %w", err))
			j.fail(err.Error())
			return nil, err
		}
	}
	j.log.Infof("[pipeline] 开始任务: %d 个部分", len(sections))
	j.send(Status(msgPreparing))

	engine, err := r.cfg.Engine.Acquire(ctx)
	if err != nil {
		j.removeDirs()
		j.fail(err.Error())
		return nil, err
	}

	j.tracker.Transition(PhaseSynthesizing)
	files := j.synthesize(ctx, engine, sections)

	if len(files) == 0 {
		j.removeDirs()
		j.fail(msgNoAudio)
		return nil, errs.Upstreamf(op, msgNoAudio)
	}

	j.tracker.Transition(PhaseMerging)
	j.send(Status(msgMerging))

	manifest := filepath.Join(j.tempDir, manifestName)
	if err := writeManifest(manifest, files); err != nil {
		err = errs.Internal(op, fmt.Errorf("写入合并清单失败: %w", err))
		j.fail(err.Error())
		return nil, err
	}

	output := filepath.Join(j.outDir, outputName)
	if err := r.cfg.Merger.Merge(ctx, manifest, output); err != nil {
		// 保留临时文件便于排查
		j.log.Errorf("[pipeline] 合并失败，临时文件保留在 %s: %v", j.tempDir, err)
		j.fail(err.Error())
		return nil, err
	}

	if err := os.RemoveAll(j.tempDir); err != nil {
		j.log.Warnf("[pipeline] 清理临时文件失败: %v", err)
	}

	result := Result{
		JobID:    id,
		Filename: path.Join("/output", id, outputName),
		Path:     output,
		Sections: len(sections),
		Failed:   len(sections) - len(files),
	}
	if j.tracker.Transition(PhaseDone) {
		j.send(Complete(result.Filename))
	}
	j.log.Infof("[pipeline] 任务完成: %s (成功 %d/%d)", result.Filename, len(files), len(sections))

	if r.cfg.OnComplete != nil {
		r.cfg.OnComplete(ctx, result)
	}
	return &result, nil
}

// synthesize 逐段合成并写入临时 WAV，返回成功的文件（保持原始顺序）。
func (j *job) synthesize(ctx context.Context, engine tts.Engine, sections []Section) []string {
	total := len(sections)
	var files []string
	for i, s := range sections {
		j.send(Progress(i+1, total, fmt.Sprintf("生成第 %d/%d 部分", i+1, total)))

		samples, rate, err := engine.Synthesize(ctx, s.Text, s.Voice)
		if err == nil && len(samples) == 0 {
			err = fmt.Errorf("未生成音频")
		}
		if err == nil {
			file := filepath.Join(j.tempDir, fmt.Sprintf("section-%d.wav", i))
			if err = audio.WriteWAV(file, samples, rate); err == nil {
				files = append(files, file)
				continue
			}
		}

		j.log.Warnf("[pipeline] 第 %d 部分合成失败: %v", i+1, err)
		j.send(SectionError(i, err.Error()))
	}
	return files
}

func (j *job) removeDirs() {
	for _, dir := range []string{j.tempDir, j.outDir} {
		if err := os.RemoveAll(dir); err != nil {
			j.log.Warnf("[pipeline] 删除目录失败 %s: %v", dir, err)
		}
	}
}
