package xguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumely/gatekit/pkg/gate/xerrs"
)

func fastConfig() Config {
	return Config{
		FailureThreshold: 2,
		ResetTimeout:     50 * time.Millisecond,
		MaxAttempts:      3,
		BaseDelay:        time.Millisecond,
		MaxDelay:         10 * time.Millisecond,
		MaxJitter:        0,
	}
}

func TestGuard_RetriesTransientFailure(t *testing.T) {
	g := New(DepInference, Config{
		FailureThreshold: 10, // 重试期间不触发熔断
		ResetTimeout:     time.Minute,
		MaxAttempts:      3,
		BaseDelay:        time.Millisecond,
		MaxJitter:        0,
	})

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGuard_OpenBreakerStopsRetrying(t *testing.T) {
	g := New(DepPayment, fastConfig())
	ctx := context.Background()

	// 两轮调用把熔断器打开（每轮重试 3 次，503 可重试）
	boom := func(ctx context.Context) error { return errors.New("503 service unavailable") }
	require.Error(t, g.Do(ctx, boom))
	assert.True(t, g.Status().IsOpen)

	// 熔断打开后：操作不执行，且不消耗重试预算空转
	calls := 0
	err := g.Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Zero(t, calls)

	// 熔断拦截翻译为 service unavailable 分类
	assert.True(t, xerrs.IsKind(err, xerrs.KindServiceUnavailable))
	var xe *xerrs.Error
	require.ErrorAs(t, err, &xe)
	assert.Contains(t, xe.Message(), DepPayment)
}

func TestGuard_RecoversAfterCooldown(t *testing.T) {
	g := New(DepEmail, Config{
		FailureThreshold: 1,
		ResetTimeout:     40 * time.Millisecond,
		MaxAttempts:      1, // 关闭重试，精确控制熔断计数
		BaseDelay:        time.Millisecond,
		MaxJitter:        0,
	})
	ctx := context.Background()

	require.Error(t, g.Do(ctx, func(ctx context.Context) error {
		return errors.New("smtp: connection reset")
	}))
	assert.True(t, g.Status().IsOpen)

	time.Sleep(60 * time.Millisecond)

	calls := 0
	require.NoError(t, g.Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.False(t, g.Status().IsOpen)
}

func TestGuard_NonRetryableBusinessError(t *testing.T) {
	g := New(DepPayment, fastConfig())

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return xerrs.New(xerrs.KindPaymentFailure, "card declined")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, xerrs.IsKind(err, xerrs.KindPaymentFailure))
}

func TestExecute_Generic(t *testing.T) {
	g := New(DepInference, fastConfig())

	calls := 0
	v, err := Execute(context.Background(), g, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("gateway timeout")
		}
		return "optimized resume", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "optimized resume", v)
	assert.Equal(t, 2, calls)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]Config{
		DepInference: fastConfig(),
		DepPayment:   {}, // 零值走默认配置
	})

	g, ok := r.Get(DepInference)
	require.True(t, ok)
	assert.Equal(t, DepInference, g.Name())

	_, ok = r.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{DepInference, DepPayment}, r.Names())

	statuses := r.StatusAll()
	require.Len(t, statuses, 2)
	assert.False(t, statuses[DepPayment].IsOpen)
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{}.normalize()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = Config{FailureThreshold: 9}.normalize()
	assert.Equal(t, uint32(9), cfg.FailureThreshold)
	assert.Equal(t, DefaultConfig().ResetTimeout, cfg.ResetTimeout)
}
