package xadmit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// localBackend 进程内滑动窗口后端。
//
// 窗口按 key 存入 expirable LRU：每次访问刷新条目 TTL（TTL 等于
// 窗口长度），闲置超过一个窗口的 key 整体淘汰，等价于剪除全部
// 时间戳，不需要后台清扫协程。
type localBackend struct {
	cfg     Config
	mu      sync.Mutex
	windows *expirable.LRU[string, *slidingWindow]
}

func newLocalBackend(cfg Config, maxKeys int) *localBackend {
	return &localBackend{
		cfg:     cfg,
		windows: expirable.NewLRU[string, *slidingWindow](maxKeys, nil, cfg.Window),
	}
}

func (b *localBackend) Type() string {
	return "local"
}

func (b *localBackend) Take(ctx context.Context, key string, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	w := b.getOrCreate(key)
	return w.take(now, b.cfg), nil
}

func (b *localBackend) Peek(ctx context.Context, key string, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	w, ok := b.windows.Get(key)
	b.mu.Unlock()
	if !ok {
		return Result{
			Allowed:   true,
			Remaining: b.cfg.MaxRequests,
			ResetAt:   now.Add(b.cfg.Window),
		}, nil
	}
	return w.peek(now, b.cfg), nil
}

func (b *localBackend) Reset(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows.Remove(key)
	return nil
}

func (b *localBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows.Purge()
	return nil
}

// getOrCreate 获取窗口并刷新条目 TTL。
func (b *localBackend) getOrCreate(key string) *slidingWindow {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows.Get(key)
	if !ok {
		w = &slidingWindow{}
	}
	// Add 重置 TTL，活跃 key 不会在窗口未滑完时被过期淘汰
	b.windows.Add(key, w)
	return w
}

// slidingWindow 单个 key 的时间戳窗口。
type slidingWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// take 剪除过期时间戳，窗口未满则记录本次请求。
func (w *slidingWindow) take(now time.Time, cfg Config) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, cfg.Window)
	if len(w.stamps) >= cfg.MaxRequests {
		return w.denied(now, cfg)
	}

	w.stamps = append(w.stamps, now)
	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - len(w.stamps),
		ResetAt:   w.stamps[0].Add(cfg.Window),
	}
}

// peek 只读判定，不记录请求也不剪除切片（避免写锁竞争放大）。
func (w *slidingWindow) peek(now time.Time, cfg Config) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-cfg.Window)
	count := 0
	var oldest time.Time
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			if count == 0 {
				oldest = ts
			}
			count++
		}
	}

	res := Result{
		Allowed:   count < cfg.MaxRequests,
		Remaining: cfg.MaxRequests - count,
		ResetAt:   now.Add(cfg.Window),
	}
	if count > 0 {
		res.ResetAt = oldest.Add(cfg.Window)
	}
	if !res.Allowed {
		res.Remaining = 0
		res.RetryAfter = oldest.Add(cfg.Window).Sub(now)
	}
	return res
}

// prune 移除早于窗口起点的时间戳。
func (w *slidingWindow) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func (w *slidingWindow) denied(now time.Time, cfg Config) Result {
	oldest := w.stamps[0]
	return Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: oldest.Add(cfg.Window).Sub(now),
		ResetAt:    oldest.Add(cfg.Window),
	}
}

// 编译期接口检查
var _ backend = (*localBackend)(nil)
