package xretry

import (
	"context"
	"errors"
	"strings"
)

// retryablePatterns 依赖故障的文本特征，全部小写。
// 上游 SDK 的错误往往没有结构化类型，只能靠消息文本兜底识别。
var retryablePatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"too many requests",
	"overloaded",
}

// DependencyFailurePolicy 面向外部依赖调用的重试判定。
//
// 判定顺序：
//  1. ctx 取消/超时不重试（调用方已经放弃）。
//  2. 错误链上有 Retryable() 声明的，按声明判定。
//  3. 按消息文本匹配已知的临时故障特征。
type DependencyFailurePolicy struct {
	patterns []string
}

// ClassifyOption 分类器配置选项。
type ClassifyOption func(*DependencyFailurePolicy)

// WithExtraPatterns 追加自定义故障特征（不区分大小写）。
func WithExtraPatterns(patterns ...string) ClassifyOption {
	return func(p *DependencyFailurePolicy) {
		for _, s := range patterns {
			if s != "" {
				p.patterns = append(p.patterns, strings.ToLower(s))
			}
		}
	}
}

// NewDependencyFailurePolicy 创建依赖故障重试判定策略。
func NewDependencyFailurePolicy(opts ...ClassifyOption) *DependencyFailurePolicy {
	p := &DependencyFailurePolicy{
		patterns: retryablePatterns,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ShouldRetry 实现 RetryPolicy。
func (p *DependencyFailurePolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if re, ok := asRetryable(err); ok {
		return re.Retryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range p.patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// 编译期接口检查
var _ RetryPolicy = (*DependencyFailurePolicy)(nil)
