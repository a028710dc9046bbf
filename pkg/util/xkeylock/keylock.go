package xkeylock

import (
	"context"
	"fmt"
	"io"
)

// Handle 表示一次成功的锁获取。
type Handle interface {
	// Unlock 释放锁。
	// 幂等：第一次调用返回 nil，后续调用返回 [ErrLockNotHeld]。
	Unlock() error

	// Key 返回锁的 key，Unlock 之后仍可调用。
	Key() string
}

// Locker 提供基于 key 的进程内互斥锁。所有方法并发安全。
type Locker interface {
	io.Closer

	// Acquire 阻塞式获取锁。
	// ctx 取消时返回 ctx.Err()；Locker 关闭时返回 [ErrClosed]；
	// key 为空返回 [ErrInvalidKey]。
	Acquire(ctx context.Context, key string) (Handle, error)

	// TryAcquire 非阻塞获取锁。
	// 锁被占用时返回 (nil, [ErrLockOccupied])。
	TryAcquire(key string) (Handle, error)

	// Len 返回当前活跃的 key 数量（瞬时快照），用于监控。
	Len() int
}

// Option Locker 配置选项。
type Option func(*options)

type options struct {
	shardCount int
}

const defaultShardCount = 32

// WithShardCount 设置分片数量。
// 必须为正的 2 的幂，否则 New 返回错误。默认 32。
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// New 创建 Locker 实例。
func New(opts ...Option) (Locker, error) {
	o := options{shardCount: defaultShardCount}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.shardCount <= 0 || o.shardCount&(o.shardCount-1) != 0 {
		return nil, fmt.Errorf("%w: must be a positive power of 2, got %d",
			ErrInvalidShardCount, o.shardCount)
	}
	return newKeyLock(o.shardCount), nil
}
