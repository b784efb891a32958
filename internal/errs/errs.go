// Package errs 定义服务内统一的错误分类。
//
// 每个错误携带一个 Kind，HTTP 层据此选择状态码，
// 音频流水线据此决定是终止任务还是仅记录分段失败。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别。
type Kind string

const (
	KindValidation Kind = "validation" // 输入缺失或非法，发生在任何副作用之前
	KindUpstream   Kind = "upstream"   // 第三方服务报错、返回空或无法识别的响应
	KindParse      Kind = "parse"      // 结构化输出提取失败
	KindTool       Kind = "tool"       // 外部可执行程序（ffmpeg）失败
	KindConfig     Kind = "config"     // 缺少凭证或配置
	KindInternal   Kind = "internal"   // 意外错误
)

// Error 是带类别的错误。
type Error struct {
	Kind Kind
	Op   string // 出错的操作，如 "story.Script"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation 创建输入校验错误。
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Upstream 包装第三方服务错误。
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// Upstreamf 创建没有底层错误的上游错误。
func Upstreamf(op, format string, args ...any) error {
	return &Error{Kind: KindUpstream, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Parse 创建结构化解析错误。
func Parse(op, msg string, err error) error {
	return &Error{Kind: KindParse, Op: op, Msg: msg, Err: err}
}

// Tool 包装外部工具错误，msg 一般为工具的诊断输出。
func Tool(op, msg string, err error) error {
	return &Error{Kind: KindTool, Op: op, Msg: msg, Err: err}
}

// Config 创建配置缺失错误。
func Config(op, msg string) error {
	return &Error{Kind: KindConfig, Op: op, Msg: msg}
}

// Internal 包装意外错误。
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的类别，找不到时视为 internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定类别。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 将错误类别映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream, KindParse:
		return http.StatusBadGateway
	case KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
