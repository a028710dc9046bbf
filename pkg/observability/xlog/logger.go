package xlog

import (
	"context"
	"log/slog"
	"time"
)

// 编译时接口检查
var (
	_ Logger          = (*xlogger)(nil)
	_ Leveler         = (*xlogger)(nil)
	_ LoggerWithLevel = (*xlogger)(nil)
)

// xlogger Logger 接口的实现。
type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	// pc=0：不捕获调用位置。AddSource 场景由 handler 自行处理，
	// 这里不做栈帧回溯，保持热路径轻量。
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, r)
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

// With 返回带额外属性的派生 Logger。
// 派生实例共享 levelVar，动态级别变更对所有派生生效。
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:  l.handler.WithAttrs(attrs),
		levelVar: l.levelVar,
	}
}

func (l *xlogger) SetLevel(level slog.Level) {
	l.levelVar.Set(level)
}

func (l *xlogger) GetLevel() slog.Level {
	return l.levelVar.Level()
}
