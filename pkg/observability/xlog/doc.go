// Package xlog 提供基于 log/slog 的结构化日志。
//
// # 设计理念
//
//   - 强制 context 传递，方法签名只接受 slog.Attr，避免隐式 key-value 转换
//   - 动态级别控制，运行时可调
//   - 输出目标可选：stderr、任意 io.Writer、或 lumberjack 滚动文件
//
// 典型用法：
//
//	logger := xlog.New(
//	    xlog.WithLevel(slog.LevelInfo),
//	    xlog.WithJSON(),
//	)
//	logger.Info(ctx, "usage recorded",
//	    slog.String("email", email),
//	    slog.Int("free_consumed", n),
//	)
//
// 测试中使用 xlog.Discard() 获得静默 Logger。
package xlog
