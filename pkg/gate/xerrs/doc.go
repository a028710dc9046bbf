// Package xerrs 提供网关核心的统一错误分类。
//
// # 设计理念
//
// 错误按 Kind 分类，每个 Kind 携带稳定的错误码和建议的 HTTP 状态码，
// 供上层路由在渲染响应时使用。分类同时决定重试语义：
// 只有 KindServiceUnavailable（依赖不可用）是可重试的，
// 其余分类（参数错误、限流、欺诈拦截等）重试没有意义。
//
// *Error 实现 Retryable() 方法，与 xretry 的错误分类器自动协作。
//
// 注意：资格判定的拒绝（额度用尽等）不是错误，而是带原因的正常裁决，
// 见 xgate.Verdict。xerrs 只用于真正的异常路径。
package xerrs
