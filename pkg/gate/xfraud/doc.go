// Package xfraud 提供基于启发式规则的滥用检测。
//
// 三条规则，阈值均可配置：
//
//   - 多账号：同一网络地址出现的不同身份数达到阈值。
//   - 一次性邮箱：邮箱域名包含已知临时邮箱服务的特征子串。
//   - 高频注册：共享该地址或该身份的会话在时间窗口内的活跃次数超过阈值。
//
// 检测只产出理由列表，不做处置决策；标记的粘性（一旦标记不自动
// 解除）由会话层维护。
package xfraud
