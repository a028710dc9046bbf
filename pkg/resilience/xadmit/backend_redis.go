package xadmit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// takeScript 原子地剪窗、判定并记录一次请求。
// KEYS[1] 窗口 ZSET；ARGV: now_ms, window_ms, max, member。
// 返回 {allowed, count, oldest_score}。
var takeScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1] - ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
  redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  allowed = 1
  count = count + 1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local score = '0'
if oldest[2] then score = oldest[2] end
return {allowed, count, score}
`)

// peekScript 只读查询，不剪窗也不记录。
var peekScript = redis.NewScript(`
local count = redis.call('ZCOUNT', KEYS[1], ARGV[1] - ARGV[2] + 1, '+inf')
local oldest = redis.call('ZRANGEBYSCORE', KEYS[1], ARGV[1] - ARGV[2] + 1, '+inf', 'WITHSCORES', 'LIMIT', 0, 1)
local score = '0'
if oldest[2] then score = oldest[2] end
return {count, score}
`)

// redisBackend Redis 滑动窗口后端。
// 每个 key 一个 ZSET，score 是毫秒时间戳，member 加 UUID 后缀
// 保证同一毫秒的并发请求不会互相覆盖。
type redisBackend struct {
	client redis.UniversalClient
	cfg    Config
	prefix string
}

func newRedisBackend(client redis.UniversalClient, cfg Config, prefix string) *redisBackend {
	return &redisBackend{client: client, cfg: cfg, prefix: prefix}
}

func (b *redisBackend) Type() string {
	return "redis"
}

func (b *redisBackend) redisKey(key string) string {
	return b.prefix + ":window:" + key
}

func (b *redisBackend) Take(ctx context.Context, key string, now time.Time) (Result, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	raw, err := takeScript.Run(ctx, b.client,
		[]string{b.redisKey(key)},
		nowMs, b.cfg.Window.Milliseconds(), b.cfg.MaxRequests, member,
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis take: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("xadmit: redis take: unexpected reply length %d", len(raw))
	}

	allowed, err := toInt64(raw[0])
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis take: %w", err)
	}
	count, err := toInt64(raw[1])
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis take: %w", err)
	}
	oldestMs, err := toInt64(raw[2])
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis take: %w", err)
	}

	return b.buildResult(allowed == 1, int(count), oldestMs, now), nil
}

func (b *redisBackend) Peek(ctx context.Context, key string, now time.Time) (Result, error) {
	raw, err := peekScript.Run(ctx, b.client,
		[]string{b.redisKey(key)},
		now.UnixMilli(), b.cfg.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis peek: %w", err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("xadmit: redis peek: unexpected reply length %d", len(raw))
	}

	count, err := toInt64(raw[0])
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis peek: %w", err)
	}
	oldestMs, err := toInt64(raw[1])
	if err != nil {
		return Result{}, fmt.Errorf("xadmit: redis peek: %w", err)
	}

	return b.buildResult(int(count) < b.cfg.MaxRequests, int(count), oldestMs, now), nil
}

func (b *redisBackend) buildResult(allowed bool, count int, oldestMs int64, now time.Time) Result {
	res := Result{
		Allowed:   allowed,
		Remaining: b.cfg.MaxRequests - count,
		ResetAt:   now.Add(b.cfg.Window),
	}
	if oldestMs > 0 {
		res.ResetAt = time.UnixMilli(oldestMs).Add(b.cfg.Window)
	}
	if !allowed {
		res.Remaining = 0
		res.RetryAfter = res.ResetAt.Sub(now)
	}
	return res
}

func (b *redisBackend) Reset(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("xadmit: redis reset: %w", err)
	}
	return nil
}

// Close 不关闭 client，连接的生命周期归注入方管理。
func (b *redisBackend) Close() error {
	return nil
}

// toInt64 解析 Lua 脚本返回值，数值和字符串两种形态都会出现。
func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected reply type %T", v)
	}
}

// 编译期接口检查
var _ backend = (*redisBackend)(nil)
