package pipeline

import (
	"sync"

	"github.com/iabetor/aistory/internal/logger"
)

// Phase 表示一个音频任务的当前阶段。
type Phase int

const (
	// PhasePending 已接收请求，尚未开始合成。
	PhasePending Phase = iota
	// PhaseSynthesizing 正在逐段合成。
	PhaseSynthesizing
	// PhaseMerging 正在调用 ffmpeg 合并。
	PhaseMerging
	// PhaseDone 合并成功，终态。
	PhaseDone
	// PhaseFailed 任务失败，终态。
	PhaseFailed
)

var phaseNames = [...]string{
	"Pending",
	"Synthesizing",
	"Merging",
	"Done",
	"Failed",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// Terminal 报告是否为终态。
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Tracker 管理任务阶段的线程安全转换。
// 终态只能进入一次，流水线据此保证终止事件只发送一次。
type Tracker struct {
	mu      sync.RWMutex
	job     string
	current Phase
}

// NewTracker 创建初始阶段为 Pending 的跟踪器。
func NewTracker(job string) *Tracker {
	return &Tracker{job: job, current: PhasePending}
}

// Current 返回当前阶段。
func (t *Tracker) Current() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Transition 尝试切换阶段。合法的转换：
//
//	Pending      → Synthesizing
//	Synthesizing → Merging
//	Merging      → Done
//
// 任何非终态都可以转换到 Failed；终态不再变化。
func (t *Tracker) Transition(to Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !validTransition(t.current, to) {
		logger.Debugf("[pipeline] %s: 忽略非法转换 %s → %s", t.job, t.current, to)
		return false
	}

	from := t.current
	t.current = to
	logger.Debugf("[pipeline] %s: %s → %s", t.job, from, to)
	return true
}

func validTransition(from, to Phase) bool {
	if from.Terminal() {
		return false
	}
	if to == PhaseFailed {
		return true
	}
	switch from {
	case PhasePending:
		return to == PhaseSynthesizing
	case PhaseSynthesizing:
		return to == PhaseMerging
	case PhaseMerging:
		return to == PhaseDone
	}
	return false
}
