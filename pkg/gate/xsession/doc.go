// Package xsession 提供按身份聚合的会话存储。
//
// 身份是规范化后的邮箱（去首尾空白、全小写），每个身份一条会话
// 记录，重复到访刷新元数据并推进活跃时间。存储是进程内的权威
// 状态：资格判定、滥用检测的历史视图、运营统计都从这里读取。
//
// 计数器只增不减，活跃时间只向前推进。滥用标记是粘性的：一旦
// 标记，后续任何写入都不会清除。
package xsession
