package xkeylock

import "errors"

var (
	// ErrLockNotHeld Unlock 第二次及后续调用时返回
	ErrLockNotHeld = errors.New("xkeylock: lock not held")

	// ErrLockOccupied TryAcquire 时锁被占用
	ErrLockOccupied = errors.New("xkeylock: lock occupied")

	// ErrClosed Locker 已关闭
	ErrClosed = errors.New("xkeylock: closed")

	// ErrInvalidKey key 为空字符串
	ErrInvalidKey = errors.New("xkeylock: key must not be empty")

	// ErrInvalidShardCount 分片数不是 2 的幂
	ErrInvalidShardCount = errors.New("xkeylock: invalid shard count")
)
