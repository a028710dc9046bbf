package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// 底层哨兵错误的再导出，调用方可直接使用 errors.Is。
var (
	// ErrOpenState 熔断器打开，请求被拒绝
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下探测名额已被占用
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// BreakerError 熔断拦截错误，携带熔断器名称与状态。
// Retryable() 恒为 false：熔断器已经打开时重试没有意义。
type BreakerError struct {
	// Err 底层哨兵错误
	Err error

	// Name 熔断器名称
	Name string

	// State 拦截时的熔断器状态
	State State
}

func (e *BreakerError) Error() string {
	return fmt.Sprintf("breaker %q (%s): %v", e.Name, e.State, e.Err)
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 熔断拦截不可重试。
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapBreakerError 将 gobreaker 哨兵错误包装为 *BreakerError。
// 其他错误（业务错误、ctx 错误）原样透传。
func wrapBreakerError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState):
		return &BreakerError{Err: gobreaker.ErrOpenState, Name: name, State: StateOpen}
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return &BreakerError{Err: gobreaker.ErrTooManyRequests, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsBreakerError 判断 err 是否为熔断拦截错误。
func IsBreakerError(err error) bool {
	var be *BreakerError
	return errors.As(err, &be)
}

// IsOpen 判断 err 是否因熔断器打开而被拒绝。
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 判断 err 是否因半开探测名额耗尽而被拒绝。
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}
