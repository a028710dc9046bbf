// Package xkeylock 提供进程内的按 key 互斥锁。
//
// 资格判定的 check → act → record 序列跨越多次 I/O，期间同一身份的
// 并发请求可能交错，导致免费额度被重复消费。xkeylock 以归一化邮箱
// 为 key 串行化这一序列。
//
// 实现要点：
//   - key 经 xxhash 映射到固定数量的分片，降低全局锁争用
//   - 每个 key 对应一个容量为 1 的 channel，发送即持锁，接收即放锁，
//     Acquire 因此天然支持 context 取消
//   - 条目按引用计数回收，空闲 key 不占内存
//
// 锁不可重入，与 sync.Mutex 一致；调用方避免对同一 key 嵌套 Acquire。
package xkeylock
