// Package xguard 将熔断与重试组合为面向外部依赖的统一防护层。
//
// # 组合顺序
//
// 重试在外、熔断在内：每次尝试都经过熔断器，失败计入熔断统计；
// 熔断器一旦打开，熔断错误声明不可重试，重试循环立即停止，不会
// 空转消耗重试预算。
//
// 每个依赖类别（推理、支付、邮件）持有独立的 Guard，由 Registry
// 统一构造和查询。熔断拦截统一翻译为 service unavailable 分类错误，
// 调用方据此返回 503。
package xguard
