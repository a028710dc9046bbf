package xadmit

import (
	"context"
	"time"
)

// backend 滑动窗口存储后端。
type backend interface {
	// Type 返回后端类型标识，用于日志和指标
	Type() string

	// Take 剪除过期时间戳后判定并记录本次请求
	Take(ctx context.Context, key string, now time.Time) (Result, error)

	// Peek 只读查询窗口状态
	Peek(ctx context.Context, key string, now time.Time) (Result, error)

	// Reset 清空指定 key 的窗口
	Reset(ctx context.Context, key string) error

	// Close 释放后端资源
	Close() error
}
