// Package apperr 定义合成流程中的错误分类。
//
// 每个错误都带一个 Kind，调用方通过 errors.Is 与哨兵值比较：
//
//	if errors.Is(err, apperr.ErrRemovalService) {
//	    // 抠图服务失败
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindRemovalService Kind = "REMOVAL_SERVICE"
	KindComposition    Kind = "COMPOSITION"
	KindExport         Kind = "EXPORT"
	KindBusy           Kind = "BUSY"
	KindInvalidState   Kind = "INVALID_STATE"
)

// 哨兵值，只用于 errors.Is 比较
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrRemovalService = &Error{Kind: KindRemovalService}
	ErrComposition    = &Error{Kind: KindComposition}
	ErrExport         = &Error{Kind: KindExport}
	ErrBusy           = &Error{Kind: KindBusy}
	ErrInvalidState   = &Error{Kind: KindInvalidState}
)

// Error 带类别的错误
type Error struct {
	Kind    Kind
	Message string

	// StatusCode/Status 仅在抠图服务返回非 2xx 时填写
	StatusCode int
	Status     string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: %d %s", msg, e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 匹配
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Validation 选中的文件不是图片或者超过大小限制
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// RemovalService 抠图请求失败（网络、非 2xx、凭证问题）
func RemovalService(err error, format string, args ...any) error {
	return &Error{Kind: KindRemovalService, Message: fmt.Sprintf(format, args...), Err: err}
}

// RemovalStatus 抠图服务返回了非 2xx 状态
func RemovalStatus(statusCode int, status string) error {
	return &Error{
		Kind:       KindRemovalService,
		Message:    "background removal failed",
		StatusCode: statusCode,
		Status:     status,
	}
}

// Composition 图层解码或加载失败
func Composition(err error, format string, args ...any) error {
	return &Error{Kind: KindComposition, Message: fmt.Sprintf(format, args...), Err: err}
}

// Export 导出或下载失败
func Export(err error, format string, args ...any) error {
	return &Error{Kind: KindExport, Message: fmt.Sprintf(format, args...), Err: err}
}

// Busy 上一次选择还在处理中
func Busy(format string, args ...any) error {
	return &Error{Kind: KindBusy, Message: fmt.Sprintf(format, args...)}
}

// InvalidState 当前状态下不允许的操作
func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回 err 链上第一个 *Error 的类别，没有则为空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
