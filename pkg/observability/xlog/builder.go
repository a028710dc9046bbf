package xlog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// options 构建配置。
type options struct {
	level     slog.Level
	json      bool
	addSource bool
	output    io.Writer
}

// Option 构建选项。
type Option func(*options)

// WithLevel 设置初始日志级别。默认 slog.LevelInfo。
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithJSON 使用 JSON 输出格式。默认为文本格式。
func WithJSON() Option {
	return func(o *options) {
		o.json = true
	}
}

// WithSource 记录日志产生的源码位置。
// runtime.Callers 有不可忽略的开销，默认关闭。
func WithSource() Option {
	return func(o *options) {
		o.addSource = true
	}
}

// WithOutput 设置输出目标。默认 os.Stderr。
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithRotation 输出到按大小滚动的日志文件。
//
// maxSizeMB 单文件上限（MB），maxBackups 保留的历史文件数，
// maxAgeDays 历史文件保留天数。底层使用 lumberjack。
func WithRotation(filename string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		o.output = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
	}
}

// New 构建 Logger。
//
// 默认配置：Info 级别、文本格式、输出到 os.Stderr。
func New(opts ...Option) LoggerWithLevel {
	o := &options{
		level:  slog.LevelInfo,
		output: os.Stderr,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(o.level)

	hopts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: o.addSource,
	}

	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(o.output, hopts)
	} else {
		handler = slog.NewTextHandler(o.output, hopts)
	}

	return &xlogger{
		handler:  handler,
		levelVar: levelVar,
	}
}

// Discard 返回丢弃所有日志的 Logger，用于测试和默认值。
func Discard() LoggerWithLevel {
	return &xlogger{
		handler:  slog.DiscardHandler,
		levelVar: new(slog.LevelVar),
	}
}
