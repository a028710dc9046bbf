package xretry

import (
	"errors"
	"fmt"
)

// RetryableError 可自声明重试性的错误。
// 实现此接口的错误不经过文本启发式分类，直接按 Retryable() 判定。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 明确不可重试的错误包装。
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Retryable 恒为 false。
func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 明确可重试的错误包装。
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string {
	return fmt.Sprintf("temporary: %v", e.Err)
}

func (e *TemporaryError) Unwrap() error { return e.Err }

// Retryable 恒为 true。
func (e *TemporaryError) Retryable() bool { return true }

// Permanent 标记 err 不可重试。nil 返回 nil。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Temporary 标记 err 可重试。nil 返回 nil。
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

// 编译期接口检查
var (
	_ RetryableError = (*PermanentError)(nil)
	_ RetryableError = (*TemporaryError)(nil)
)

// asRetryable 在错误链上查找 RetryableError 声明。
func asRetryable(err error) (RetryableError, bool) {
	var re RetryableError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
