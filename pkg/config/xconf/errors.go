package xconf

import "errors"

var (
	// ErrEmptyPath 配置文件路径为空
	ErrEmptyPath = errors.New("xconf: config path is empty")

	// ErrLoadFailed 配置读取失败
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 配置解析失败
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 配置反序列化失败
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrUnsupportedFormat 不支持的配置格式
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrNotReloadable 从字节数据创建的配置不支持重载/监视
	ErrNotReloadable = errors.New("xconf: config created from bytes cannot be reloaded")
)
