package xgate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/resumely/gatekit/pkg/gate/xallow"
	"github.com/resumely/gatekit/pkg/gate/xerrs"
	"github.com/resumely/gatekit/pkg/gate/xfraud"
	"github.com/resumely/gatekit/pkg/gate/xsession"
	"github.com/resumely/gatekit/pkg/observability/xlog"
	"github.com/resumely/gatekit/pkg/observability/xmetrics"
	"github.com/resumely/gatekit/pkg/util/xkeylock"
)

// EvaluateRequest 一次资格判定请求。
type EvaluateRequest struct {
	// Email 身份邮箱，判定前做规范化
	Email string

	// FullName 用户提供的姓名
	FullName string

	// NetworkAddress 客户端网络地址
	NetworkAddress string

	// UserAgent 客户端 UA
	UserAgent string

	// Referrer 来源页
	Referrer string
}

// Verdict 判定结果。拒绝不是错误：检查 Allowed 与 Reason。
type Verdict struct {
	// Allowed 是否放行
	Allowed bool

	// Reason 拒绝理由，放行时为空
	Reason string

	// Whitelisted 是否命中白名单
	Whitelisted bool

	// WhitelistType 命中的条目类型，未命中时为空
	WhitelistType xallow.MatchType

	// WhitelistPattern 命中的条目模式
	WhitelistPattern string

	// FreeLimit 生效的免费额度，xallow.Unlimited(-1) 表示不限
	FreeLimit int

	// FreeRemaining 剩余免费额度，不限时为 -1
	FreeRemaining int

	// DiscountPercent 付费折扣百分比
	DiscountPercent int

	// Session 判定后的会话快照
	Session xsession.Session
}

// Usage 一次记账后的累计用量。
type Usage struct {
	// ResourcesGenerated 累计生成的资源数
	ResourcesGenerated int

	// FreeResourcesConsumed 累计消耗的免费额度
	FreeResourcesConsumed int

	// FreeUnit 本次是否消耗了免费额度
	FreeUnit bool
}

// Engine 资格判定引擎。依赖全部注入，不持有全局状态。
type Engine struct {
	cfg      Config
	store    *xsession.Store
	matcher  *xallow.Matcher
	detector *xfraud.Detector
	locks    xkeylock.Locker
	logger   xlog.Logger
	observer xmetrics.Observer
}

// Option 引擎配置选项。
type Option func(*engineOptions)

type engineOptions struct {
	clock    func() time.Time
	logger   xlog.Logger
	observer xmetrics.Observer
}

// WithClock 注入时钟，会话存储与检测器共用。测试用。
func WithClock(clock func() time.Time) Option {
	return func(o *engineOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志器。默认丢弃日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置指标观察器。默认空实现。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *engineOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// New 创建判定引擎。白名单在这里编译，非法条目立即报错。
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := engineOptions{
		clock:    time.Now,
		logger:   xlog.Discard(),
		observer: xmetrics.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	cfg = cfg.normalize()

	matcher, err := xallow.New(cfg.Whitelist)
	if err != nil {
		return nil, err
	}
	locks, err := xkeylock.New()
	if err != nil {
		return nil, err
	}

	store := xsession.NewStore(xsession.WithClock(o.clock))
	return &Engine{
		cfg:      cfg,
		store:    store,
		matcher:  matcher,
		detector: xfraud.New(cfg.Fraud, store, xfraud.WithClock(o.clock)),
		locks:    locks,
		logger:   o.logger,
		observer: o.observer,
	}, nil
}

// Close 释放身份锁等内部资源。
func (e *Engine) Close() error {
	return e.locks.Close()
}

// Evaluate 执行一次资格判定。
// 同一身份的判定串行执行；拒绝通过 Verdict 表达，error 只用于
// 输入非法、锁获取失败等操作性问题。
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) (Verdict, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return Verdict{}, err
	}

	h, err := e.locks.Acquire(ctx, email)
	if err != nil {
		return Verdict{}, err
	}
	defer func() { _ = h.Unlock() }()

	v := e.evaluateLocked(ctx, email, req)
	e.observer.RecordVerdict(ctx, v.Allowed)
	return v, nil
}

// evaluateLocked 持锁执行判定流程。
func (e *Engine) evaluateLocked(ctx context.Context, email string, req EvaluateRequest) Verdict {
	sess := e.store.Upsert(email, xsession.Metadata{
		FullName:       req.FullName,
		NetworkAddress: req.NetworkAddress,
		UserAgent:      req.UserAgent,
		Referrer:       req.Referrer,
	})

	// 白名单比对每次判定都重做：条目可能已停用或改排
	grant, whitelisted := e.matcher.Match(email, req.NetworkAddress)
	sess, _ = e.store.Update(email, func(s *xsession.Session) {
		if whitelisted {
			s.Class = xsession.AccountWhitelisted
			s.WhitelistPattern = grant.Pattern
			s.FreeLimit = grant.FreeLimit
			s.DiscountPercent = grant.DiscountPercent
		} else {
			s.Class = xsession.AccountRegular
			s.WhitelistPattern = ""
			s.FreeLimit = e.cfg.RegularFreeLimit
			s.DiscountPercent = 0
		}
	})

	// 滥用检测：新理由并入标记，标记本身是粘性的
	if reasons := e.detector.Detect(email, req.NetworkAddress); len(reasons) > 0 {
		joined := strings.Join(reasons, "; ")
		sess, _ = e.store.Update(email, func(s *xsession.Session) {
			s.Flagged = true
			s.FlagReason = joined
		})
	}

	v := Verdict{
		Whitelisted:      whitelisted,
		WhitelistType:    grant.Type,
		WhitelistPattern: sess.WhitelistPattern,
		FreeLimit:        sess.FreeLimit,
		DiscountPercent:  sess.DiscountPercent,
		Session:          sess,
	}

	if sess.Flagged {
		v.Reason = "account flagged for suspicious activity: " + sess.FlagReason
		e.logDenied(ctx, email, v.Reason)
		return v
	}

	if sess.FreeLimit == xallow.Unlimited {
		v.Allowed = true
		v.FreeRemaining = xallow.Unlimited
		return v
	}

	remaining := sess.FreeLimit - sess.FreeResourcesConsumed
	if remaining <= 0 {
		if whitelisted {
			v.Reason = fmt.Sprintf("whitelist limit reached (%d)", sess.FreeLimit)
		} else {
			v.Reason = fmt.Sprintf("free resource limit reached (%d per identity)", sess.FreeLimit)
		}
		e.logDenied(ctx, email, v.Reason)
		return v
	}

	v.Allowed = true
	v.FreeRemaining = remaining
	return v
}

// RecordUsage 记录一次资源生成并返回累计用量。
// 在剩余免费额度内（或不限额）时消耗一份免费额度，否则按付费计。
func (e *Engine) RecordUsage(ctx context.Context, email string) (Usage, error) {
	email, err := validateEmail(email)
	if err != nil {
		return Usage{}, err
	}

	h, err := e.locks.Acquire(ctx, email)
	if err != nil {
		return Usage{}, err
	}
	defer func() { _ = h.Unlock() }()

	return e.recordUsageLocked(email), nil
}

func (e *Engine) recordUsageLocked(email string) Usage {
	freeUnit := false
	if sess, ok := e.store.Get(email); ok {
		freeUnit = sess.FreeLimit == xallow.Unlimited ||
			sess.FreeResourcesConsumed < sess.FreeLimit
	} else {
		// 未经判定直接记账：按普通账户额度处理
		freeUnit = e.cfg.RegularFreeLimit > 0
	}

	sess := e.store.RecordUsage(email, freeUnit)
	return Usage{
		ResourcesGenerated:    sess.ResourcesGenerated,
		FreeResourcesConsumed: sess.FreeResourcesConsumed,
		FreeUnit:              freeUnit,
	}
}

// Do 在一次持锁期间完成"判定 → 执行 → 记账"。
//
// 判定拒绝时 action 不执行；action 返回错误时不记账，免费额度
// 不被消耗。两个并发的 Do 串行执行，免费额度不会被重复消耗。
func (e *Engine) Do(ctx context.Context, req EvaluateRequest, action func(ctx context.Context) error) (Verdict, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return Verdict{}, err
	}

	h, err := e.locks.Acquire(ctx, email)
	if err != nil {
		return Verdict{}, err
	}
	defer func() { _ = h.Unlock() }()

	v := e.evaluateLocked(ctx, email, req)
	e.observer.RecordVerdict(ctx, v.Allowed)
	if !v.Allowed {
		return v, nil
	}

	if err := action(ctx); err != nil {
		return v, err
	}

	e.recordUsageLocked(email)
	return v, nil
}

// Stats 运营统计。
type Stats struct {
	xsession.Stats

	// ActiveWhitelistEntries 策略中启用的白名单条目数
	ActiveWhitelistEntries int
}

// Stats 返回运营统计快照。
func (e *Engine) Stats() Stats {
	return Stats{
		Stats:                  e.store.Stats(),
		ActiveWhitelistEntries: e.matcher.ActiveCount(),
	}
}

// ListSessions 返回全部会话快照，按创建时间排列。
func (e *Engine) ListSessions() []xsession.Session {
	return e.store.List()
}

// ListWhitelist 返回策略中的白名单条目副本。
func (e *Engine) ListWhitelist() []xallow.Entry {
	return e.matcher.Entries()
}

// Detector 返回滥用检测器，供外层做只读探测。
func (e *Engine) Detector() *xfraud.Detector {
	return e.detector
}

func (e *Engine) logDenied(ctx context.Context, email, reason string) {
	e.logger.Info(ctx, "eligibility denied",
		slog.String("email", email),
		slog.String("reason", reason),
	)
}

// validateEmail 规范化并校验身份邮箱。
func validateEmail(email string) (string, error) {
	email = xsession.NormalizeEmail(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return "", xerrs.Newf(xerrs.KindValidation, "invalid email address %q", email)
	}
	return email, nil
}
