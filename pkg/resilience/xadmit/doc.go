// Package xadmit 提供基于滑动窗口的请求准入控制。
//
// # 语义
//
// 每个 key（通常是规范化邮箱或客户端地址）维护一个时间戳窗口：
// 窗口内的请求数达到上限时拒绝，早于窗口起点的时间戳被剪除。
// 与令牌桶不同，滑动窗口的判定是精确的——第 N+1 个请求被拒绝，
// 窗口滑过最早一次请求后立刻恢复准入。
//
// # 后端
//
// 默认使用进程内后端（expirable LRU 承载窗口，闲置 key 自动淘汰）。
// 通过 WithRedis 切换为 Redis 后端，用 ZSET + Lua 脚本保证多实例
// 部署下判定的原子性。两种后端语义一致，可互换。
package xadmit
