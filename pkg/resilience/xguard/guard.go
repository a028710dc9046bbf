package xguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/resumely/gatekit/pkg/gate/xerrs"
	"github.com/resumely/gatekit/pkg/observability/xlog"
	"github.com/resumely/gatekit/pkg/observability/xmetrics"
	"github.com/resumely/gatekit/pkg/resilience/xbreaker"
	"github.com/resumely/gatekit/pkg/resilience/xretry"
)

// 内置依赖类别名称。
const (
	// DepInference 推理服务（简历优化生成）
	DepInference = "inference"

	// DepPayment 支付网关
	DepPayment = "payment"

	// DepEmail 邮件投递
	DepEmail = "email"
)

// Status 熔断器状态快照的别名，调用方无需直接导入 xbreaker。
type Status = xbreaker.Status

// Config 单个依赖的防护配置。
type Config struct {
	// FailureThreshold 触发熔断的连续失败次数
	FailureThreshold uint32 `koanf:"failure_threshold"`

	// ResetTimeout 熔断打开到半开探测的冷却时间
	ResetTimeout time.Duration `koanf:"reset_timeout"`

	// MaxAttempts 总尝试次数（含首次）
	MaxAttempts uint `koanf:"max_attempts"`

	// BaseDelay 首次重试的基础等待时间
	BaseDelay time.Duration `koanf:"base_delay"`

	// MaxDelay 基础等待时间上限
	MaxDelay time.Duration `koanf:"max_delay"`

	// MaxJitter 随机抖动上限
	MaxJitter time.Duration `koanf:"max_jitter"`
}

// DefaultConfig 返回默认防护配置。
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		MaxAttempts:      3,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		MaxJitter:        time.Second,
	}
}

// normalize 将零值字段填充为默认值，允许配置文件只覆盖部分字段。
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxJitter < 0 {
		c.MaxJitter = def.MaxJitter
	}
	return c
}

// Guard 单个外部依赖的防护执行器。
type Guard struct {
	name    string
	breaker *xbreaker.Breaker
	retryer *xretry.Retryer
	logger  xlog.Logger
}

// Option 防护配置选项。
type Option func(*guardOptions)

type guardOptions struct {
	logger   xlog.Logger
	observer xmetrics.Observer
}

// WithLogger 设置日志器。默认丢弃日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *guardOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置指标观察器，记录熔断状态迁移。默认空实现。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *guardOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// New 创建依赖防护执行器。
func New(name string, cfg Config, opts ...Option) *Guard {
	o := guardOptions{
		logger:   xlog.Discard(),
		observer: xmetrics.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	cfg = cfg.normalize()

	breaker := xbreaker.New(name,
		xbreaker.WithFailureThreshold(cfg.FailureThreshold),
		xbreaker.WithResetTimeout(cfg.ResetTimeout),
		xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
			ctx := context.Background()
			o.logger.Warn(ctx, "breaker state changed",
				slog.String("dependency", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			o.observer.RecordBreakerTransition(ctx, name, from.String(), to.String())
		}),
	)

	retryer := xretry.NewRetryer(
		xretry.WithMaxAttempts(cfg.MaxAttempts),
		xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
			xretry.WithInitialDelay(cfg.BaseDelay),
			xretry.WithMaxDelay(cfg.MaxDelay),
			xretry.WithMaxJitter(cfg.MaxJitter),
		)),
		xretry.WithLogger(o.logger.With(slog.String("dependency", name))),
	)

	return &Guard{
		name:    name,
		breaker: breaker,
		retryer: retryer,
		logger:  o.logger,
	}
}

// Do 执行受防护的操作。
//
// 每次尝试都经过熔断器。熔断拦截返回 service unavailable 分类错误，
// 且不消耗剩余重试预算。
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := g.retryer.Do(ctx, func(ctx context.Context) error {
		return g.breaker.Do(ctx, fn)
	})
	return g.translate(err)
}

// Execute 执行受防护的操作（泛型版本）。
func Execute[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := xretry.DoWithResult(ctx, g.retryer, func(ctx context.Context) (T, error) {
		return xbreaker.Execute(ctx, g.breaker, fn)
	})
	if err != nil {
		return v, g.translate(err)
	}
	return v, nil
}

// translate 将熔断拦截翻译为 service unavailable 分类错误。
func (g *Guard) translate(err error) error {
	if err == nil {
		return nil
	}
	if xbreaker.IsBreakerError(err) {
		return xerrs.Wrap(xerrs.KindServiceUnavailable,
			g.name+" temporarily unavailable, please retry later", err)
	}
	return err
}

// Status 返回底层熔断器状态快照。
func (g *Guard) Status() xbreaker.Status {
	return g.breaker.Status()
}

// Name 返回依赖名称。
func (g *Guard) Name() string {
	return g.name
}
