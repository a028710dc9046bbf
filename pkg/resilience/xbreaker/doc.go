// Package xbreaker 提供按依赖划分的熔断器，防止故障级联。
//
// # 设计理念
//
// 底层使用 [sony/gobreaker/v2]：连续失败达到阈值后打开，打开期间
// 调用直接失败且不会执行操作；冷却时间过后进入半开，放行一次探测
// 调用，其结果决定下一个状态。任一次成功都会清零失败计数。
//
// 每个外部依赖类别（推理、支付、邮件）持有独立的 Breaker 实例，
// 由组合根构造并注入，而非包级单例。
//
// 熔断错误实现 Retryable() == false：熔断器已经打开时重试没有意义，
// 与 xretry 组合使用时会立即停止。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
