package xgate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/resumely/gatekit/pkg/gate/xallow"
	"github.com/resumely/gatekit/pkg/gate/xerrs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func evalReq(email string) EvaluateRequest {
	return EvaluateRequest{
		Email:          email,
		NetworkAddress: "203.0.113.7",
		UserAgent:      "Mozilla/5.0 Chrome/120 Safari/537",
	}
}

func TestEvaluate_FreeTierSingleUse(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	v, err := e.Evaluate(ctx, evalReq("alice@example.com"))
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, 1, v.FreeLimit)
	assert.Equal(t, 1, v.FreeRemaining)
	assert.False(t, v.Whitelisted)

	u, err := e.RecordUsage(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.FreeUnit)
	assert.Equal(t, 1, u.ResourcesGenerated)
	assert.Equal(t, 1, u.FreeResourcesConsumed)

	v, err = e.Evaluate(ctx, evalReq("alice@example.com"))
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, "free resource limit reached (1 per identity)", v.Reason)
}

func TestEvaluate_WhitelistPriority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Whitelist = []xallow.Entry{
		{Type: xallow.MatchEmail, Pattern: "bob@sales.partner.com", FreeLimit: 2, Active: true},
		{Type: xallow.MatchDomain, Pattern: "*.partner.com", FreeLimit: xallow.Unlimited, Active: true},
	}
	e := newEngine(t, cfg)
	ctx := context.Background()

	// 精确条目优先于域名 glob
	v, err := e.Evaluate(ctx, evalReq("bob@sales.partner.com"))
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.True(t, v.Whitelisted)
	assert.Equal(t, "bob@sales.partner.com", v.WhitelistPattern)
	assert.Equal(t, 2, v.FreeLimit)

	// 同域其他人拿到不限额
	v, err = e.Evaluate(ctx, evalReq("carol@sales.partner.com"))
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, xallow.Unlimited, v.FreeLimit)
	assert.Equal(t, xallow.Unlimited, v.FreeRemaining)

	// 不限额身份随便用
	for i := 0; i < 10; i++ {
		_, err := e.RecordUsage(ctx, "carol@sales.partner.com")
		require.NoError(t, err)
	}
	v, err = e.Evaluate(ctx, evalReq("carol@sales.partner.com"))
	require.NoError(t, err)
	assert.True(t, v.Allowed)
}

func TestEvaluate_WhitelistLimitExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Whitelist = []xallow.Entry{
		{Type: xallow.MatchDomain, Pattern: "partner.com", FreeLimit: 2, Active: true},
	}
	e := newEngine(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := e.Evaluate(ctx, evalReq("dave@partner.com"))
		require.NoError(t, err)
		require.True(t, v.Allowed, "use %d", i+1)
		_, err = e.RecordUsage(ctx, "dave@partner.com")
		require.NoError(t, err)
	}

	v, err := e.Evaluate(ctx, evalReq("dave@partner.com"))
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, "whitelist limit reached (2)", v.Reason)
}

func TestEvaluate_FanOutFlagging(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	// 同一地址的前两个身份正常
	for _, email := range []string{"a@example.com", "b@example.com"} {
		v, err := e.Evaluate(ctx, evalReq(email))
		require.NoError(t, err)
		assert.True(t, v.Allowed, email)
	}

	// 第三个身份触发多账号判定
	v, err := e.Evaluate(ctx, evalReq("c@example.com"))
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Contains(t, v.Reason, "Multiple accounts")
	assert.True(t, v.Session.Flagged)
}

func TestEvaluate_FlagIsSticky(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	v, err := e.Evaluate(ctx, evalReq("x@mailinator.com"))
	require.NoError(t, err)
	require.False(t, v.Allowed)
	assert.Contains(t, v.Reason, "Disposable email domain")

	// 换地址、换 UA 也不会解除标记
	v, err = e.Evaluate(ctx, EvaluateRequest{
		Email:          "x@mailinator.com",
		NetworkAddress: "198.51.100.99",
		UserAgent:      "Mozilla/5.0 Firefox/121",
	})
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.True(t, v.Session.Flagged)
}

func TestEvaluate_InvalidEmail(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	for _, email := range []string{"", "no-at-sign", "@nodomain.com", "user@", "user@nodot"} {
		_, err := e.Evaluate(ctx, EvaluateRequest{Email: email})
		require.Error(t, err, email)
		assert.True(t, xerrs.IsKind(err, xerrs.KindValidation), email)
	}
}

func TestDo_ChargesOnlyOnSuccess(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	// action 失败：不记账，额度保留
	boom := errors.New("inference failed")
	v, err := e.Do(ctx, evalReq("alice@example.com"), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, v.Allowed)

	// 额度还在，重试成功后记账
	executed := false
	v, err = e.Do(ctx, evalReq("alice@example.com"), func(ctx context.Context) error {
		executed = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.True(t, executed)

	// 额度耗尽：action 不执行
	executed = false
	v, err = e.Do(ctx, evalReq("alice@example.com"), func(ctx context.Context) error {
		executed = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.False(t, executed)
}

func TestDo_NoDoubleSpend(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	ctx := context.Background()

	const concurrent = 8
	var executed atomic.Int32
	var g errgroup.Group
	for i := 0; i < concurrent; i++ {
		g.Go(func() error {
			_, err := e.Do(ctx, evalReq("alice@example.com"), func(ctx context.Context) error {
				executed.Add(1)
				return nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// 免费额度 1 份：恰好一次 action 执行
	assert.Equal(t, int32(1), executed.Load())

	sess := e.ListSessions()
	require.Len(t, sess, 1)
	assert.Equal(t, 1, sess[0].ResourcesGenerated)
	assert.Equal(t, 1, sess[0].FreeResourcesConsumed)
}

func TestRecordUsage_UnknownIdentity(t *testing.T) {
	e := newEngine(t, DefaultConfig())

	u, err := e.RecordUsage(context.Background(), "fresh@example.com")
	require.NoError(t, err)
	assert.True(t, u.FreeUnit)
	assert.Equal(t, 1, u.ResourcesGenerated)
}

func TestStats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Whitelist = []xallow.Entry{
		{Type: xallow.MatchDomain, Pattern: "partner.com", FreeLimit: 5, Active: true},
		{Type: xallow.MatchEmail, Pattern: "off@x.com", FreeLimit: 1, Active: false},
	}
	e := newEngine(t, cfg)
	ctx := context.Background()

	_, err := e.Evaluate(ctx, evalReq("alice@example.com"))
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, evalReq("dave@partner.com"))
	require.NoError(t, err)
	_, err = e.RecordUsage(ctx, "alice@example.com")
	require.NoError(t, err)

	st := e.Stats()
	assert.Equal(t, 2, st.TotalIdentities)
	assert.Equal(t, 2, st.ActiveToday)
	assert.Equal(t, 1, st.FreeResourcesToday)
	assert.Equal(t, 1, st.WhitelistedCount)
	assert.Equal(t, 1, st.ActiveWhitelistEntries)

	require.Len(t, e.ListWhitelist(), 2)
}

func TestWhitelistRevocation(t *testing.T) {
	// 第一份策略带白名单
	cfg := DefaultConfig()
	cfg.Whitelist = []xallow.Entry{
		{Type: xallow.MatchDomain, Pattern: "partner.com", FreeLimit: xallow.Unlimited, Active: true},
	}
	e := newEngine(t, cfg)
	ctx := context.Background()

	v, err := e.Evaluate(ctx, evalReq("dave@partner.com"))
	require.NoError(t, err)
	require.True(t, v.Whitelisted)

	// 换成停用条目的引擎（模拟策略重载），同一身份回落为普通账户
	cfg.Whitelist[0].Active = false
	e2 := newEngine(t, cfg)
	v, err = e2.Evaluate(ctx, evalReq("dave@partner.com"))
	require.NoError(t, err)
	assert.False(t, v.Whitelisted)
	assert.Equal(t, 1, v.FreeLimit)
}

func TestDo_InvalidEmailShortCircuits(t *testing.T) {
	e := newEngine(t, DefaultConfig())

	_, err := e.Do(context.Background(), EvaluateRequest{Email: "bad"}, func(ctx context.Context) error {
		t.Fatal("action must not run")
		return nil
	})
	require.Error(t, err)
	assert.True(t, xerrs.IsKind(err, xerrs.KindValidation))
}

func ExampleEngine_Do() {
	e, _ := New(DefaultConfig())
	defer func() { _ = e.Close() }()

	v, _ := e.Do(context.Background(), EvaluateRequest{
		Email:          "alice@example.com",
		NetworkAddress: "203.0.113.7",
	}, func(ctx context.Context) error {
		// 生成一份优化后的简历
		return nil
	})
	fmt.Println(v.Allowed)
	// Output: true
}
