package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
)

// EventType 区分进度流中的事件。
type EventType string

const (
	EventStatus         EventType = "status"
	EventProgress       EventType = "progress"
	EventSectionError   EventType = "section_error"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
	EventPromptProgress EventType = "prompt_progress"
	EventImageProgress  EventType = "image_progress"
	EventSectionDone    EventType = "section_complete"
)

// Event 是进度流中的一行。各类型只使用部分字段。
type Event struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message,omitempty"`
	Current  int       `json:"current,omitempty"`
	Total    int       `json:"total,omitempty"`
	Index    *int      `json:"index,omitempty"`
	Success  bool      `json:"success,omitempty"`
	Filename string    `json:"filename,omitempty"`

	// 批量配图使用
	SectionID string `json:"sectionId,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Terminal 报告事件是否结束整个流。
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func Status(msg string) Event { return Event{Type: EventStatus, Message: msg} }

func Progress(current, total int, msg string) Event {
	return Event{Type: EventProgress, Current: current, Total: total, Message: msg}
}

func SectionError(index int, msg string) Event {
	return Event{Type: EventSectionError, Index: &index, Message: msg}
}

func Complete(filename string) Event {
	return Event{Type: EventComplete, Success: true, Filename: filename}
}

func Failure(msg string) Event { return Event{Type: EventError, Message: msg} }

// Emitter 接收进度事件。
type Emitter interface {
	Emit(Event) error
}

// EmitFunc 把函数适配为 Emitter。
type EmitFunc func(Event) error

func (f EmitFunc) Emit(e Event) error { return f(e) }

// ErrWriterClosed 在 Writer 关闭后继续写入时返回。
var ErrWriterClosed = errors.New("进度流已关闭")

// Writer 把事件编码为 NDJSON，每行写完立即 flush。
// 可被多个 goroutine 共用。
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

// NewWriter 包装 w。w 实现 http.Flusher 时每行后都会 flush。
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Emit 写入一行事件。写出 complete 或 error 之后 Writer 自动关闭。
func (w *Writer) Emit(e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	if e.Terminal() {
		w.closed = true
	}
	return nil
}

// Close 结束写入，之后的 Emit 都会返回 ErrWriterClosed。可重复调用。
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
