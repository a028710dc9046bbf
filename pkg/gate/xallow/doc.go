// Package xallow 提供白名单条目匹配。
//
// 条目分三类：精确邮箱（不区分大小写）、域名 glob（* 是唯一通配符，
// 其余字符字面匹配）、网段 CIDR。匹配按条目配置顺序进行，第一个
// 命中的启用条目生效，后续条目不再参与——运营靠排序表达优先级，
// 把更具体的条目放在前面。
//
// glob 编译是显式步骤：非法模式在构造 Matcher 时报错，而不是在
// 请求路径上静默不命中。
package xallow
