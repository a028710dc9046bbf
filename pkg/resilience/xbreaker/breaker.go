package xbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// gobreaker 类型别名，调用方无需直接导入底层包。
type (
	// State 熔断器状态
	State = gobreaker.State

	// Counts 统计计数
	Counts = gobreaker.Counts
)

// 熔断器状态常量。
const (
	// StateClosed 关闭状态（正常），请求通过，失败被统计
	StateClosed = gobreaker.StateClosed

	// StateHalfOpen 半开状态（探测），放行一次调用
	StateHalfOpen = gobreaker.StateHalfOpen

	// StateOpen 打开状态（熔断），请求直接失败
	StateOpen = gobreaker.StateOpen
)

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 60 * time.Second
)

// Status 熔断器状态快照，供运维端点读取，无副作用。
type Status struct {
	// Failures 当前连续失败次数，任一次成功后清零
	Failures uint32

	// IsOpen 是否处于打开状态（快速失败）
	IsOpen bool

	// NextAttemptAt 允许下一次探测调用的时刻；未打开时为零值
	NextAttemptAt time.Time
}

// Breaker 按依赖划分的熔断器。
type Breaker struct {
	name      string
	threshold uint32
	timeout   time.Duration
	onChange  func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]

	mu          sync.Mutex
	failures    uint32
	nextAttempt time.Time
}

// Option 熔断器配置选项。
type Option func(*Breaker)

// WithFailureThreshold 设置触发熔断的连续失败次数。默认 5。
func WithFailureThreshold(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithResetTimeout 设置打开状态到半开探测的冷却时间。默认 60 秒。
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithOnStateChange 设置状态变化回调，可用于日志和指标。
func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onChange = f
	}
}

// New 创建熔断器。
// name 用于日志和监控标识，通常是依赖类别（"inference"、"payment"、"email"）。
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: defaultFailureThreshold,
		timeout:   defaultResetTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // 半开状态只放行一次探测
		Timeout:     b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.trackTransition(to)
			if b.onChange != nil {
				b.onChange(name, from, to)
			}
		},
	})

	return b
}

// trackTransition 维护冷却截止时间。
// gobreaker 在状态转换时重置自身计数，冷却截止时间只能在转换时刻推算。
func (b *Breaker) trackTransition(to State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch to {
	case StateOpen:
		b.nextAttempt = time.Now().Add(b.timeout)
	case StateClosed:
		b.nextAttempt = time.Time{}
	}
}

// Do 执行受熔断器保护的操作。
//
// 熔断器打开时操作不会被执行，直接返回 *BreakerError（包装 ErrOpenState）。
// ctx 仅用于入口检查，不传递给底层状态机。
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.cb.Execute(func() (any, error) {
		err := fn(ctx)
		b.record(err)
		return nil, err
	})
	return wrapBreakerError(err, b.name)
}

// Execute 执行受熔断器保护的操作（泛型版本）。
// 包级函数而非方法：Go 不支持方法的类型参数。
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := b.cb.Execute(func() (any, error) {
		v, err := fn(ctx)
		b.record(err)
		return v, err
	})
	if err != nil {
		return zero, wrapBreakerError(err, b.name)
	}
	if result == nil {
		return zero, nil
	}
	if typed, ok := result.(T); ok {
		return typed, nil
	}
	return zero, nil
}

// record 维护本地连续失败计数。
// 只有操作真正执行时才会走到这里，熔断拦截不计入。
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
	} else {
		b.failures = 0
	}
}

// Status 返回状态快照，无副作用。
func (b *Breaker) Status() Status {
	state := b.cb.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{
		Failures: b.failures,
		IsOpen:   state == StateOpen,
	}
	if state == StateOpen {
		st.NextAttemptAt = b.nextAttempt
	}
	return st
}

// State 返回熔断器当前状态。
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.name
}

// Counts 返回底层统计计数。
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}
