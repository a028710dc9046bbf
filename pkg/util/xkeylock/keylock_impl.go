package xkeylock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// keyLock 是 Locker 的分片实现。
type keyLock struct {
	shards   []shard
	mask     uint64
	closed   atomic.Bool
	keyCount atomic.Int64
	done     chan struct{}
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry 一个 key 的锁条目。
// ch 是容量为 1 的 channel，用作互斥量：发送成功 = 持锁，接收 = 放锁。
// refcnt 统计引用此条目的 goroutine（持有者 + 等待者），归零时删除条目。
type lockEntry struct {
	ch     chan struct{}
	refcnt atomic.Int32
}

type handle struct {
	kl    *keyLock
	key   string
	entry *lockEntry
	done  atomic.Bool
}

func newKeyLock(shardCount int) *keyLock {
	shards := make([]shard, shardCount)
	for i := range shards {
		shards[i].entries = make(map[string]*lockEntry)
	}
	return &keyLock{
		shards: shards,
		mask:   uint64(shardCount - 1),
		done:   make(chan struct{}),
	}
}

func (kl *keyLock) getShard(key string) *shard {
	h := xxhash.Sum64String(key)
	return &kl.shards[h&kl.mask]
}

// getOrCreate 获取或创建 lockEntry 并增加引用计数。
func (kl *keyLock) getOrCreate(key string) (*lockEntry, error) {
	s := kl.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if kl.closed.Load() {
		return nil, ErrClosed
	}

	e, ok := s.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
		kl.keyCount.Add(1)
	}
	e.refcnt.Add(1)
	return e, nil
}

// releaseRef 减少引用计数，归零时从 map 删除。
func (kl *keyLock) releaseRef(key string, entry *lockEntry) {
	s := kl.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.refcnt.Add(-1) == 0 {
		delete(s.entries, key)
		kl.keyCount.Add(-1)
	}
}

func (kl *keyLock) Acquire(ctx context.Context, key string) (Handle, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	// 快速路径：ctx 已取消时避免进入 getOrCreate 造成不必要的锁竞争
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := kl.getOrCreate(key)
	if err != nil {
		return nil, err
	}
	select {
	case entry.ch <- struct{}{}: // 获取成功
		return &handle{kl: kl, key: key, entry: entry}, nil
	case <-ctx.Done():
		kl.releaseRef(key, entry)
		return nil, ctx.Err()
	case <-kl.done:
		kl.releaseRef(key, entry)
		return nil, ErrClosed
	}
}

func (kl *keyLock) TryAcquire(key string) (Handle, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	entry, err := kl.getOrCreate(key)
	if err != nil {
		return nil, err
	}
	select {
	case entry.ch <- struct{}{}:
		return &handle{kl: kl, key: key, entry: entry}, nil
	default:
		kl.releaseRef(key, entry)
		return nil, ErrLockOccupied
	}
}

func (kl *keyLock) Len() int {
	n := kl.keyCount.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (kl *keyLock) Close() error {
	if !kl.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(kl.done)
	return nil
}

func (h *handle) Unlock() error {
	if !h.done.CompareAndSwap(false, true) {
		return ErrLockNotHeld
	}
	<-h.entry.ch
	h.kl.releaseRef(h.key, h.entry)
	return nil
}

func (h *handle) Key() string {
	return h.key
}

// 编译期接口检查
var (
	_ Locker = (*keyLock)(nil)
	_ Handle = (*handle)(nil)
)
