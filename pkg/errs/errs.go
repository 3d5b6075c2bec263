// Package errs 定义了全系统统一使用的三类粗粒度错误。
//
// 底层包返回哨兵错误，由 pipeline.Processor 和 service 层翻译为这里的 Kind；
// Cause 仅用于日志，不参与程序逻辑判断。
package errs

import (
	"errors"
	"fmt"
)

// Kind 是错误的粗粒度分类。
type Kind int

const (
	// KindUnexpected 表示无法归类的错误，对外只返回通用提示。
	KindUnexpected Kind = iota
	// KindInvalidInput 表示缺失或非法的输入（包括缺失的配置、缺失的列），不会发起任何网络调用。
	KindInvalidInput
	// KindRuntime 表示下游处理失败（抓取、连接、上游响应格式、HTTP 失败、元数据解析等）。
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRuntime:
		return "runtime"
	default:
		return "unexpected"
	}
}

// Error 携带错误类别、面向调用方的消息以及原始原因。
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidInput 创建一个 invalid-input 错误。
func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

// Invalidf 以格式化消息创建 invalid-input 错误，cause 可为 nil。
func Invalidf(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Runtime 创建一个 runtime 错误并保留原因。
func Runtime(msg string, cause error) error {
	return &Error{Kind: KindRuntime, Message: msg, Cause: cause}
}

// Runtimef 以格式化消息创建 runtime 错误。
func Runtimef(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindRuntime, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf 返回错误链中第一个 *Error 的类别，找不到时为 KindUnexpected。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// MessageOf 返回可以展示给调用方的消息，不含 Cause（Cause 只写入日志）。unexpected 错误返回通用提示。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Message
	}
	return UnexpectedMessage
}

// UnexpectedMessage 是 unexpected 错误对外展示的统一文案。
const UnexpectedMessage = "An unexpected error occurred."
