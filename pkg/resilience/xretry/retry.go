package xretry

import "time"

// RetryPolicy 判定错误是否值得重试。
type RetryPolicy interface {
	// ShouldRetry 返回 true 表示该错误可以重试。
	ShouldRetry(err error) bool
}

// BackoffPolicy 计算两次尝试之间的等待时间。
type BackoffPolicy interface {
	// Delay 返回第 attempt 次重试前的等待时间，attempt 从 1 开始。
	Delay(attempt uint) time.Duration
}

// RetryPolicyFunc 函数适配器。
type RetryPolicyFunc func(err error) bool

// ShouldRetry 实现 RetryPolicy。
func (f RetryPolicyFunc) ShouldRetry(err error) bool { return f(err) }

// 编译期接口检查
var _ RetryPolicy = (RetryPolicyFunc)(nil)
