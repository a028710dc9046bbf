package xadmit

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resumely/gatekit/pkg/observability/xlog"
	"github.com/resumely/gatekit/pkg/observability/xmetrics"
)

// Config 滑动窗口准入配置。
type Config struct {
	// MaxRequests 窗口内允许的最大请求数
	MaxRequests int `koanf:"max_requests"`

	// Window 滑动窗口长度
	Window time.Duration `koanf:"window"`
}

// Result 一次准入判定的结果。
type Result struct {
	// Allowed 是否放行
	Allowed bool

	// Remaining 本次判定后窗口内剩余的配额
	Remaining int

	// RetryAfter 被拒绝时距离下一个空位的等待时间，放行时为 0
	RetryAfter time.Duration

	// ResetAt 窗口内最早一条记录滑出的时刻
	ResetAt time.Time
}

// Limiter 滑动窗口准入控制器。所有方法并发安全。
type Limiter interface {
	io.Closer

	// Allow 判定并消耗一个配额。拒绝不是错误，检查 Result.Allowed。
	Allow(ctx context.Context, key string) (Result, error)

	// Peek 查询当前窗口状态，不消耗配额。
	Peek(ctx context.Context, key string) (Result, error)

	// Reset 清空指定 key 的窗口。
	Reset(ctx context.Context, key string) error
}

// limiter 组合后端与可观测性的准入控制器。
type limiter struct {
	cfg     Config
	backend backend
	opts    *options
	closed  atomic.Bool
}

// New 创建准入控制器。默认使用进程内后端。
func New(cfg Config, opts ...Option) (Limiter, error) {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return nil, ErrInvalidConfig
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var be backend
	if o.redis != nil {
		be = newRedisBackend(o.redis, cfg, o.keyPrefix)
	} else {
		be = newLocalBackend(cfg, o.maxKeys)
	}

	return &limiter{cfg: cfg, backend: be, opts: o}, nil
}

func (l *limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l.closed.Load() {
		return Result{}, ErrClosed
	}
	if key == "" {
		return Result{}, ErrInvalidKey
	}

	res, err := l.backend.Take(ctx, key, l.opts.clock())
	if err != nil {
		return Result{}, err
	}

	l.opts.observer.RecordAdmission(ctx, l.backend.Type(), res.Allowed)
	if !res.Allowed {
		l.opts.logger.Warn(ctx, "admission denied",
			slog.String("backend", l.backend.Type()),
			slog.String("key", key),
			slog.Int("max_requests", l.cfg.MaxRequests),
			slog.Duration("window", l.cfg.Window),
			slog.Duration("retry_after", res.RetryAfter),
		)
	}
	return res, nil
}

func (l *limiter) Peek(ctx context.Context, key string) (Result, error) {
	if l.closed.Load() {
		return Result{}, ErrClosed
	}
	if key == "" {
		return Result{}, ErrInvalidKey
	}
	return l.backend.Peek(ctx, key, l.opts.clock())
}

func (l *limiter) Reset(ctx context.Context, key string) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	return l.backend.Reset(ctx, key)
}

func (l *limiter) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return l.backend.Close()
}

// 编译期接口检查
var _ Limiter = (*limiter)(nil)

// options 准入控制器可选配置。
type options struct {
	redis     redis.UniversalClient
	keyPrefix string
	maxKeys   int
	clock     func() time.Time
	logger    xlog.Logger
	observer  xmetrics.Observer
}

func defaultOptions() *options {
	return &options{
		keyPrefix: "xadmit",
		clock:     time.Now,
		logger:    xlog.Discard(),
		observer:  xmetrics.Nop(),
	}
}

// Option 准入控制器配置选项。
type Option func(*options)

// WithRedis 使用 Redis 后端，适用于多实例部署。
func WithRedis(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redis = client
		}
	}
}

// WithKeyPrefix 设置 Redis key 前缀。默认 "xadmit"。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithMaxKeys 限制进程内后端跟踪的 key 数量，超出按 LRU 淘汰。
// 0 表示不限制。仅对进程内后端生效。
func WithMaxKeys(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxKeys = n
		}
	}
}

// WithClock 注入时钟，测试用。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志器。默认丢弃日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置指标观察器。默认空实现。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
