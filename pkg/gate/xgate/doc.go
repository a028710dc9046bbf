// Package xgate 是资格判定的组合根：把会话存储、白名单匹配、
// 滥用检测和身份锁组装成一台判定引擎。
//
// # 判定顺序
//
// 刷新会话 → 白名单比对（命中即授予权益，失效即回收）→ 滥用
// 检测（标记粘性）→ 免费额度检查。被标记的身份直接拒绝；白名单
// 不限额的身份跳过额度检查。
//
// # 并发模型
//
// 同一身份的判定与记账串行执行：每次操作持有该身份的 keyed lock。
// Do 在一次持锁期间完成"判定 → 执行 → 记账"，两个并发的 Do 不会
// 让同一个免费额度被消耗两次。
package xgate
