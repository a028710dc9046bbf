package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

const (
	defaultInitialDelay = time.Second
	defaultMultiplier   = 2.0
	defaultMaxDelay     = 30 * time.Second
	defaultMaxJitter    = time.Second
)

// ExponentialBackoff 指数退避加随机抖动。
//
// 第 n 次重试前的等待时间为 initial * multiplier^(n-1) 再加上
// [0, maxJitter) 的随机抖动，超过 maxDelay 的部分被截断（抖动
// 不参与截断，保证相邻重试不完全同步）。
type ExponentialBackoff struct {
	initial    time.Duration
	multiplier float64
	maxDelay   time.Duration
	maxJitter  time.Duration
}

// BackoffOption 退避策略配置选项。
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay 设置首次重试的基础等待时间。默认 1 秒。
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.initial = d
		}
	}
}

// WithMultiplier 设置指数倍率。默认 2。
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		if m >= 1 {
			b.multiplier = m
		}
	}
}

// WithMaxDelay 设置基础等待时间的上限。默认 30 秒。
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithMaxJitter 设置随机抖动的上限，0 表示关闭抖动。默认 1 秒。
func WithMaxJitter(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		if d >= 0 {
			b.maxJitter = d
		}
	}
}

// NewExponentialBackoff 创建指数退避策略。
func NewExponentialBackoff(opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initial:    defaultInitialDelay,
		multiplier: defaultMultiplier,
		maxDelay:   defaultMaxDelay,
		maxJitter:  defaultMaxJitter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Delay 返回第 attempt 次重试前的等待时间，attempt 从 1 开始。
func (b *ExponentialBackoff) Delay(attempt uint) time.Duration {
	if attempt == 0 {
		attempt = 1
	}

	base := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
	if base > float64(b.maxDelay) || base < 0 {
		base = float64(b.maxDelay)
	}

	d := time.Duration(base)
	if b.maxJitter > 0 {
		d += time.Duration(randomFloat64() * float64(b.maxJitter))
	}
	return d
}

// randomFloat64 返回 [0, 1) 区间的随机数。
// 用 crypto/rand 避免全局种子，失败时退化为 0（无抖动）。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// 编译期接口检查
var _ BackoffPolicy = (*ExponentialBackoff)(nil)
