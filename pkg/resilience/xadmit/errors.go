package xadmit

import "errors"

// 哨兵错误定义。
var (
	// ErrClosed 限流器已关闭
	ErrClosed = errors.New("xadmit: limiter closed")

	// ErrInvalidKey key 为空
	ErrInvalidKey = errors.New("xadmit: key must not be empty")

	// ErrInvalidConfig 配置非法（上限或窗口不为正）
	ErrInvalidConfig = errors.New("xadmit: max requests and window must be positive")
)
