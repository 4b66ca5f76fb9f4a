// Package xerrors 为 keystone 提供统一的错误处理工具。
//
// 它只依赖标准库，其余包在各自的 errors.go 中基于这里的哨兵错误
// 声明领域错误，并通过 Wrap/Wrapf 附加上下文，保证 errors.Is 可用。
package xerrors

import (
	"errors"
	"fmt"
)

// 通用哨兵错误
var (
	// ErrNotFound 请求的对象不存在
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists 对象已存在
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput 参数无效
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout 操作超时
	ErrTimeout = errors.New("timeout")

	// ErrUnavailable 依赖的资源不可用
	ErrUnavailable = errors.New("unavailable")

	// ErrClosed 组件已关闭
	ErrClosed = errors.New("closed")
)

// Wrap 为错误附加上下文，err 为 nil 时返回 nil。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 与 Wrap 相同，但支持格式化消息。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CodedError 携带机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s]", e.Code)
	}
	return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WithCode 为错误附加错误码。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// GetCode 返回错误链上第一个错误码，没有则返回空串。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 在 err 非 nil 时 panic，仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 聚合多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
	}
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 过滤 nil 后合并错误：没有错误返回 nil，只有一个时原样返回。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// Collector 只保留第一个非 nil 错误。
type Collector struct {
	err error
}

func (c *Collector) Collect(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

func (c *Collector) Err() error {
	return c.err
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
