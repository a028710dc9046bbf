package xretry

import (
	"context"
	"log/slog"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/resumely/gatekit/pkg/observability/xlog"
)

const defaultMaxAttempts = 3

// Retryer 重试执行器，组合重试判定与退避策略。
//
// 底层使用 avast/retry-go/v5 驱动重试循环。
type Retryer struct {
	policy      RetryPolicy
	backoff     BackoffPolicy
	maxAttempts uint
	logger      xlog.Logger
}

// RetryerOption 执行器配置选项。
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试判定策略。默认 DependencyFailurePolicy。
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略。默认指数退避。
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoff = p
		}
	}
}

// WithMaxAttempts 设置总尝试次数（含首次）。默认 3。
func WithMaxAttempts(n uint) RetryerOption {
	return func(r *Retryer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger 设置日志器，每次重试记录一条 warn 日志。默认不记录。
func WithLogger(l xlog.Logger) RetryerOption {
	return func(r *Retryer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetryer 创建重试执行器。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		policy:      NewDependencyFailurePolicy(),
		backoff:     NewExponentialBackoff(),
		maxAttempts: defaultMaxAttempts,
		logger:      xlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Do 执行带重试的操作。
// 不可重试的错误立即返回，操作不会被再次执行。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.New(r.buildOptions(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// DoWithResult 执行带重试的操作（有返回值）。
// 泛型函数，必须作为包级函数使用。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.NewWithData[T](r.buildOptions(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(r.maxAttempts),
		retry.RetryIf(func(err error) bool {
			// retry-go 原生的 Unrecoverable 标记优先
			if !retry.IsRecoverable(err) {
				return false
			}
			return r.policy.ShouldRetry(err)
		}),
		// retry-go v5 中 DelayType 的 n 从 1 开始
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.Delay(n)
		}),
		// OnRetry 的 n 从 0 开始，+1 转换为 1-based；
		// 随后的等待时间即 backoff.Delay(n+1)
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn(ctx, "retrying after failure",
				slog.Uint64("attempt", uint64(n)+1),
				slog.Uint64("max_attempts", uint64(r.maxAttempts)),
				slog.Duration("delay", r.backoff.Delay(n+1)),
				slog.String("error", err.Error()),
			)
		}),
		retry.LastErrorOnly(true),
	}
}

// MaxAttempts 返回总尝试次数上限。
func (r *Retryer) MaxAttempts() int {
	if r.maxAttempts > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(r.maxAttempts)
}
