package tts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/logger"
)

// Shared 是进程内共享的延迟初始化引擎。
// 第一次 Acquire 时在互斥锁保护下创建引擎，之后通过原子指针无锁读取。
// 创建失败不会被缓存，下一次 Acquire 会重新尝试。
type Shared struct {
	factory func(ctx context.Context) (Engine, error)

	mu     sync.Mutex
	engine atomic.Pointer[engineRef]
}

type engineRef struct{ Engine }

// NewShared 创建共享引擎。
func NewShared(factory func(ctx context.Context) (Engine, error)) *Shared {
	return &Shared{factory: factory}
}

// Acquire 返回共享引擎，必要时初始化。
func (s *Shared) Acquire(ctx context.Context) (Engine, error) {
	if ref := s.engine.Load(); ref != nil {
		return ref.Engine, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ref := s.engine.Load(); ref != nil {
		return ref.Engine, nil
	}

	logger.Info("[tts] 正在初始化 TTS 引擎...")
	engine, err := s.factory(ctx)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			err = errs.Config("tts.Acquire", err.Error())
		}
		return nil, err
	}
	s.engine.Store(&engineRef{engine})
	logger.Info("[tts] TTS 引擎初始化完成")
	return engine, nil
}

// Ready 报告引擎是否已经初始化。
func (s *Shared) Ready() bool {
	return s.engine.Load() != nil
}

// Close 释放已初始化的引擎。
func (s *Shared) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref := s.engine.Swap(nil); ref != nil {
		if c, ok := ref.Engine.(Closer); ok {
			c.Close()
		}
	}
}
