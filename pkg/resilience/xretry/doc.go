// Package xretry 提供带错误分类的指数退避重试。
//
// # 设计理念
//
// 底层使用 [avast/retry-go/v5] 驱动重试循环，本包负责两件事：
//
//   - 退避策略：BackoffPolicy 计算第 n 次重试前的等待时间，默认
//     实现为指数退避加随机抖动，抖动用于打散重试风暴。
//   - 错误分类：RetryPolicy 判定错误是否值得重试。网络抖动、上游
//     临时不可用（502/503/504、超时、连接被拒）可重试；参数错误、
//     鉴权失败、熔断拦截不可重试，立即返回。
//
// 实现了 Retryable() 接口的错误类型优先按自身声明判定，分类器
// 的文本启发式只是兜底。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
